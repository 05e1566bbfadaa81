package admin

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/m3rciful/voicebot/core/logger"
	tg "github.com/m3rciful/voicebot/core/telegram"
	"github.com/m3rciful/voicebot/core/telegram/callbacks"
	"github.com/m3rciful/voicebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"
	"github.com/m3rciful/voicebot/core/telegram/keyboard"
	"github.com/m3rciful/voicebot/core/telegram/middleware"
	"github.com/m3rciful/voicebot/internal/ledger"

	tele "gopkg.in/telebot.v4"
)

// ErrNotBound is returned by Transport before a bot has been attached.
var ErrNotBound = errors.New("admin: telegram transport not bound")

const textWelcome = "👋 Welcome! You are registered."

// Transport sends panel output through a telebot API. Replies and documents go
// through the shared outbound dispatcher; Send is synchronous so broadcast can
// count failures.
type Transport struct {
	api atomic.Pointer[tele.API]
}

// NewTransport returns an unbound transport.
func NewTransport() *Transport {
	return &Transport{}
}

// Bind attaches the bot API. It must be called before updates are served.
func (t *Transport) Bind(api tele.API) {
	t.api.Store(&api)
}

func (t *Transport) bound() (tele.API, error) {
	p := t.api.Load()
	if p == nil || *p == nil {
		return nil, ErrNotBound
	}
	return *p, nil
}

// Reply implements Replier.
func (t *Transport) Reply(ctx context.Context, chatID int64, text string, kb keyboard.Rows) error {
	api, err := t.bound()
	if err != nil {
		return err
	}
	return tghelpers.SendTo(ctx, api, chatID, text, kb.Markup())
}

// SendDocument implements Replier.
func (t *Transport) SendDocument(ctx context.Context, chatID int64, path, caption string) error {
	api, err := t.bound()
	if err != nil {
		return err
	}
	return tghelpers.SendDocumentTo(ctx, api, chatID, path, caption)
}

// Send implements broadcast.Sender and delivers text right away.
func (t *Transport) Send(_ context.Context, recipientID int64, text string) error {
	api, err := t.bound()
	if err != nil {
		return err
	}
	_, err = api.Send(tele.ChatID(recipientID), text)
	return err
}

// Handlers adapts the panel to telebot handlers.
type Handlers struct {
	panel *Panel
	repo  ledger.Repository
	guard tele.MiddlewareFunc
}

// NewHandlers builds the Telegram entry points of the panel. Admin checks use repo.
func NewHandlers(panel *Panel, repo ledger.Repository) *Handlers {
	return &Handlers{
		panel: panel,
		repo:  repo,
		guard: middleware.AdminOnlyMiddleware(middleware.AdminOptions{Checker: repo}),
	}
}

// Register adds the /start and /admin commands and the admin callback key.
// /admin is listed only in admin chats and runs behind the admin guard.
func (h *Handlers) Register(reg *tg.Registry) error {
	reg.SetAdminGuard(h.guard)
	if err := reg.RegisterCommand("/start", commands.Command{
		Handler:     h.Start,
		Description: "Start",
	}); err != nil {
		return err
	}
	if err := reg.RegisterCommand("/admin", commands.Command{
		Handler:     h.Admin,
		Description: "Admin panel",
		Access:      commands.Admin,
	}); err != nil {
		return err
	}
	return reg.RegisterCallback(Prefix, h.guard(h.Callback))
}

// Start registers the sender in the ledger.
func (h *Handlers) Start(c tele.Context) error {
	user := c.Sender()
	if user == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	var username *string
	if name := strings.TrimSpace(user.Username); name != "" {
		username = &name
	}
	if err := h.repo.EnsureUser(ctx, user.ID, username); err != nil {
		return err
	}
	return tghelpers.SendText(c, textWelcome)
}

// Admin opens the panel menu.
func (h *Handlers) Admin(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	return h.panel.OpenMenu(tghelpers.BuildContext(c), c.Sender().ID)
}

// Callback executes admin:* callback data. Malformed data is dropped silently.
func (h *Handlers) Callback(c tele.Context) error {
	if c.Sender() == nil || c.Callback() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	err := h.panel.HandleCommand(ctx, c.Sender().ID, callbacks.CallbackData(c))
	if errors.Is(err, ErrMalformedCommand) {
		return nil
	}
	return err
}

// InProgress implements router.Sessions.
func (h *Handlers) InProgress(userID int64) bool {
	return h.panel.InProgress(userID)
}

// HandleSession implements router.Sessions by feeding the message into the open session.
func (h *Handlers) HandleSession(c tele.Context) error {
	if c.Sender() == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	handled, err := h.panel.HandleText(ctx, c.Sender().ID, c.Text())
	if !handled {
		logger.Debug(ctx, "admin", "session.gone", slog.Int64("user_id", c.Sender().ID))
	}
	return err
}
