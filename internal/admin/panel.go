// Package admin implements the in-chat admin panel: a typed callback grammar,
// a per-admin conversation engine and the Telegram glue that drives them.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/core/telegram/keyboard"
	"github.com/m3rciful/voicebot/core/telegram/state"
	"github.com/m3rciful/voicebot/internal/broadcast"
	"github.com/m3rciful/voicebot/internal/ledger"
	"github.com/m3rciful/voicebot/internal/metrics"
	"github.com/m3rciful/voicebot/internal/voices"
)

// Replier is the outbound side of the panel.
type Replier interface {
	Reply(ctx context.Context, chatID int64, text string, kb keyboard.Rows) error
	SendDocument(ctx context.Context, chatID int64, path, caption string) error
}

// Broadcaster fans a message out to recipients.
type Broadcaster interface {
	Run(ctx context.Context, text string, recipients []int64) broadcast.Result
}

// Options configure a Panel.
type Options struct {
	// DatabasePath is the SQLite file offered by download; empty means unavailable.
	DatabasePath string
	// ListLimit caps user pickers and the user listing; <= 0 lists everybody.
	ListLimit int
	// Now overrides the clock used for premium listings.
	Now func() time.Time
}

// Panel routes admin commands and replies. Each admin is served one update at
// a time; different admins run concurrently.
type Panel struct {
	repo     ledger.Repository
	voices   *voices.Manager
	bcast    Broadcaster
	out      Replier
	opts     Options
	sessions *state.Store[Pending]
	locks    keyedMutex
	inflight sync.WaitGroup
}

// NewPanel wires the panel dependencies.
func NewPanel(repo ledger.Repository, catalog *voices.Manager, bcast Broadcaster, out Replier, opts Options) *Panel {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Panel{
		repo:     repo,
		voices:   catalog,
		bcast:    bcast,
		out:      out,
		opts:     opts,
		sessions: state.NewStore[Pending](),
		locks:    keyedMutex{locks: make(map[int64]*lockEntry)},
	}
}

// InProgress reports whether actor has an unanswered question.
func (p *Panel) InProgress(actor int64) bool {
	return p.sessions.InProgress(actor)
}

// Wait blocks until every broadcast started by the panel has finished.
func (p *Panel) Wait() {
	p.inflight.Wait()
}

// OpenMenu drops any open session and shows the main menu.
func (p *Panel) OpenMenu(ctx context.Context, actor int64) error {
	unlock := p.locks.lock(actor)
	defer unlock()
	return p.guard(ctx, actor, string(SectionMenu), func() error {
		return p.showMenu(ctx, actor)
	})
}

// HandleCommand executes callback data sent by actor. Any open session is
// replaced: commands that ask a question open a new one, the rest leave none.
// Data outside the grammar yields ErrMalformedCommand and no reply.
func (p *Panel) HandleCommand(ctx context.Context, actor int64, data string) error {
	cmd, err := ParseCommand(data)
	if err != nil {
		metrics.AdminActionsTotal.WithLabelValues("malformed", "ignored").Inc()
		logger.Debug(ctx, "admin", "command.malformed",
			slog.Int64("user_id", actor),
			slog.String("data", logger.SanitizeLimit(data, 64)),
		)
		return err
	}

	unlock := p.locks.lock(actor)
	defer unlock()

	if _, had := p.sessions.Take(actor); had {
		logger.Debug(ctx, "admin", "session.replaced",
			slog.Int64("user_id", actor),
			slog.String("command", cmd.Name()),
		)
	}
	return p.guard(ctx, actor, cmd.Name(), func() error {
		return p.dispatch(ctx, actor, cmd)
	})
}

// HandleText feeds a free-text reply into actor's open session. It reports
// false when no session was open; such text is ignored. A session whose owner
// lost admin rights is dropped without running the step.
func (p *Panel) HandleText(ctx context.Context, actor int64, text string) (bool, error) {
	unlock := p.locks.lock(actor)
	defer unlock()

	pending, ok := p.sessions.Take(actor)
	if !ok {
		return false, nil
	}
	return true, p.guard(ctx, actor, pending.step(), func() error {
		admin, err := p.repo.IsAdmin(ctx, actor)
		if err != nil {
			return err
		}
		if !admin {
			logger.Info(ctx, "admin", "session.revoked", slog.Int64("user_id", actor))
			return nil
		}
		return p.answer(ctx, actor, pending, text)
	})
}

// errReprompted marks a step that re-opened its own session after bad input.
var errReprompted = errors.New("admin: reprompted")

// guard runs fn at the dispatch boundary: panics become a generic failure
// message, errors are reported verbatim, and the session is never restored.
func (p *Panel) guard(ctx context.Context, actor int64, action string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			metrics.AdminActionsTotal.WithLabelValues(action, "panic").Inc()
			logger.Error(ctx, "admin", "step.panic",
				slog.Int64("user_id", actor),
				slog.String("action", action),
				slog.Any("panic", r),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 2048)),
			)
			p.reply(ctx, actor, textGenericFailure, nil)
			err = fmt.Errorf("admin: %s panicked: %v", action, r)
		}
	}()

	err = fn()
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errReprompted):
		outcome, err = "reprompt", nil
	default:
		outcome = "fail"
		p.reply(ctx, actor, textError(err), nil)
	}
	metrics.AdminActionsTotal.WithLabelValues(action, outcome).Inc()

	attrs := []slog.Attr{
		slog.Int64("user_id", actor),
		slog.String("action", action),
		slog.String("outcome", outcome),
		slog.Duration("duration", logger.RoundMS(time.Since(start))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Warn(ctx, "admin", "step.done", attrs...)
		return err
	}
	logger.Debug(ctx, "admin", "step.done", attrs...)
	return nil
}

// reprompt re-opens the same question after invalid input.
func (p *Panel) reprompt(ctx context.Context, actor int64, pending Pending, problem, prompt string) error {
	p.sessions.Put(actor, pending)
	p.reply(ctx, actor, textReprompt(problem, prompt), nil)
	return errReprompted
}

func (p *Panel) ask(ctx context.Context, actor int64, pending Pending, prompt string) error {
	p.sessions.Put(actor, pending)
	p.reply(ctx, actor, prompt, nil)
	return nil
}

// reply delivers text; transport failures are logged and not surfaced to the step.
func (p *Panel) reply(ctx context.Context, chatID int64, text string, kb keyboard.Rows) {
	if err := p.out.Reply(ctx, chatID, text, kb); err != nil {
		logger.Warn(ctx, "admin", "reply.failed",
			slog.Int64("chat_id", chatID),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}

func (p *Panel) replyChunks(ctx context.Context, chatID int64, lines []string, sep string, kb keyboard.Rows) {
	parts := chunk(lines, sep, maxMessageLen)
	for i, part := range parts {
		var markup keyboard.Rows
		if i == len(parts)-1 {
			markup = kb
		}
		p.reply(ctx, chatID, part, markup)
	}
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// keyedMutex serializes work per actor and forgets idle actors.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*lockEntry
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	e, ok := k.locks[id]
	if !ok {
		e = &lockEntry{}
		k.locks[id] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
