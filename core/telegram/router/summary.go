package router

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/m3rciful/voicebot/core/logger"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"
	"github.com/m3rciful/voicebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// summary is the single handler.handled line logged for a routed update.
type summary struct {
	handler string
	start   time.Time
	// status overrides the ok/fail status derived from the handler error.
	status string
	attrs  []slog.Attr
}

func newSummary(handler string, attrs ...slog.Attr) *summary {
	return &summary{handler: handler, start: time.Now(), attrs: attrs}
}

// run tags the update context with the handler, runs fn and logs the summary.
func (s *summary) run(c tele.Context, fn tele.HandlerFunc) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn(c)
	s.log(c, err)
	return err
}

func (s *summary) log(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := middleware.GetCounters(c)

	outcome, level := "ok", slog.LevelInfo
	if err != nil {
		outcome, level = "fail", slog.LevelWarn
	}
	attrs := append([]slog.Attr{
		slog.String("status", cmp.Or(s.status, outcome)),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", logger.Took(s.start)),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), level, "handler.handled", attrs...)
}

func normalizeHandlerName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unknown"
	}
	name = strings.TrimPrefix(name, "/")
	name = strings.ReplaceAll(name, " ", "_")
	return strings.ToLower(name)
}

// errorCode names err for the err_code field. Errors anywhere in the chain
// that carry a Code() win, then Bot API answers and context errors, then the
// dynamic type name.
func errorCode(err error) string {
	if err == nil {
		return ""
	}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return codeName(code)
		}
	}
	var flood tele.FloodError
	if errors.As(err, &flood) {
		return "TG_FLOOD"
	}
	var apiErr *tele.Error
	if errors.As(err, &apiErr) {
		return "TG_" + strconv.Itoa(apiErr.Code)
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "TIMEOUT"
	case errors.Is(err, context.Canceled):
		return "CANCELLED"
	case errors.Is(err, middleware.ErrPanic):
		return "PANIC"
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Name() == "" {
		return "UNKNOWN_ERROR"
	}
	return codeName(t.Name())
}

func codeName(s string) string {
	return strings.ToUpper(strings.ReplaceAll(s, " ", "_"))
}
