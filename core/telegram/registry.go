package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot's slash commands and callback handlers. Commands with
// Admin access are served through the guard installed by SetAdminGuard.
type Registry struct {
	mu        sync.RWMutex
	commands  map[string]commands.Command
	callbacks map[string]tele.HandlerFunc
	guard     tele.MiddlewareFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:  make(map[string]commands.Command),
		callbacks: make(map[string]tele.HandlerFunc),
	}
}

// SetAdminGuard installs the middleware that protects Admin commands.
func (r *Registry) SetAdminGuard(guard tele.MiddlewareFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guard = guard
}

// RegisterCommand adds a command under its slash name. Invalid or duplicate
// registrations are an error; an Admin command also needs a guard.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) error {
	reason := ""
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		reason = "invalid"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		reason = "no_slash_prefix"
	}
	if reason != "" {
		logger.TWire.Warn("command skipped",
			slog.String("event", "register.command.skip"),
			slog.String("name", name),
			slog.String("reason", reason),
		)
		return fmt.Errorf("telegram: invalid command %q: %s", name, reason)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		return fmt.Errorf("telegram: command %s already registered", name)
	}
	if cmd.Access == commands.Admin && r.guard == nil {
		return fmt.Errorf("telegram: admin command %s needs an admin guard", name)
	}
	r.commands[name] = cmd
	logger.TWire.Debug("command registered",
		slog.String("event", "register.command"),
		slog.String("name", name),
		slog.String("access", cmd.Access.String()),
	)
	return nil
}

// Handler returns the handler to run for a command, wrapped in the admin guard
// when the command requires it.
func (r *Registry) Handler(cmd commands.Command) tele.HandlerFunc {
	if cmd.Access != commands.Admin {
		return cmd.Handler
	}
	r.mu.RLock()
	guard := r.guard
	r.mu.RUnlock()
	return guard(cmd.Handler)
}

// Resolve finds a command by slash name, bare name or alias and returns its
// canonical name with the guarded handler.
func (r *Registry) Resolve(text string) (string, tele.HandlerFunc, bool) {
	name := strings.TrimSpace(text)
	if name == "" {
		return "", nil, false
	}
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	cmd, ok := r.commands[name]
	if !ok {
		for key, candidate := range r.commands {
			if slices.ContainsFunc(candidate.Aliases, func(a string) bool {
				return a == name || "/"+a == name
			}) {
				name, cmd, ok = key, candidate, true
				break
			}
		}
	}
	r.mu.RUnlock()
	if !ok {
		return "", nil, false
	}
	return name, r.Handler(cmd), true
}

// CommandNames returns the registered slash names in order.
func (r *Registry) CommandNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Command returns the command registered under name.
func (r *Registry) Command(name string) (commands.Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.commands[name]
	return cmd, ok
}

// Menu lists the commands shown to admins (admin true) or to everyone else.
func (r *Registry) Menu(admin bool) []tele.Command {
	var list []tele.Command
	for _, name := range r.CommandNames() {
		cmd, _ := r.Command(name)
		if cmd.ListedFor(admin) {
			list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
		}
	}
	return list
}

// RegisterCallback adds a callback handler mapped to its key.
func (r *Registry) RegisterCallback(key string, handler tele.HandlerFunc) error {
	if key == "" || handler == nil {
		logger.TWire.Warn("callback skipped",
			slog.String("event", "register.callback.skip"),
			slog.String("key", key),
			slog.Bool("handler_nil", handler == nil),
		)
		return errors.New("telegram: invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.callbacks[key]; exists {
		return fmt.Errorf("telegram: callback %s already registered", key)
	}
	r.callbacks[key] = handler
	return nil
}

// GetCallback returns the handler registered for key.
func (r *Registry) GetCallback(key string) (tele.HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.callbacks[key]
	return h, ok
}

// CallbackCount reports how many callback keys are registered.
func (r *Registry) CallbackCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.callbacks)
}

// CommandSetter is the part of the bot used to publish command menus.
type CommandSetter interface {
	SetCommands(opts ...any) error
}

// PublishMenus sets the default command menu and, for every admin chat, a
// menu that also lists Admin commands. Failures are logged and counted; the
// bot keeps running with whatever menu Telegram already has.
func PublishMenus(ctx context.Context, bot CommandSetter, reg *Registry, adminChats []int64) int {
	failed := 0
	publish := func(scope tele.CommandScope, list []tele.Command) {
		if err := bot.SetCommands(list, scope); err != nil {
			failed++
			logger.TWire.LogAttrs(ctx, slog.LevelWarn, "command menu not set",
				slog.String("event", "register.menu.fail"),
				slog.String("scope", scope.Type),
				slog.Int64("chat_id", scope.ChatID),
				slog.String("err", err.Error()),
			)
		}
	}

	publish(tele.CommandScope{Type: tele.CommandScopeDefault}, reg.Menu(false))
	adminMenu := reg.Menu(true)
	for _, id := range adminChats {
		publish(tele.CommandScope{Type: tele.CommandScopeChat, ChatID: id}, adminMenu)
	}
	logger.TWire.LogAttrs(ctx, slog.LevelInfo, "command menus published",
		slog.String("event", "register.menu"),
		slog.Int("admin_chats", len(adminChats)),
		slog.Int("failed", failed),
	)
	return failed
}
