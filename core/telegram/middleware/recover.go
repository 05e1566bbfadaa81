package middleware

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/voicebot/core/logger"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// ErrPanic wraps the value of a recovered handler panic.
var ErrPanic = errors.New("handler panicked")

// maxStackBytes caps the stack attached to a panic record.
const maxStackBytes = 8 << 10

// Recover turns a handler panic into an ErrPanic error for the bot's error
// hook. The panic is logged with the update context and, when onPanic is
// set, reported with the name of the handler that was running.
func Recover(onPanic func(handler string)) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				ctx := tghelpers.BuildContext(c)
				handler := cmp.Or(logger.HandlerFrom(ctx), "unknown")
				stack := debug.Stack()
				if len(stack) > maxStackBytes {
					stack = stack[:maxStackBytes]
				}
				logger.Error(ctx, "tg", "handler.panic",
					slog.String("panic", fmt.Sprint(r)),
					slog.String("stack", string(stack)),
				)
				if onPanic != nil {
					onPanic(handler)
				}
				err = fmt.Errorf("%w: %v", ErrPanic, r)
			}()
			return next(c)
		}
	}
}
