package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/internal/parse"
	"github.com/m3rciful/voicebot/internal/voices"
)

// answer runs the step named by pending. The session was already taken, so a
// step that wants another reply must open a session again.
func (p *Panel) answer(ctx context.Context, actor int64, pending Pending, text string) error {
	switch s := pending.(type) {
	case AwaitingCreditUser:
		return p.stepUser(ctx, actor, s, textAskCreditUser, p.showCreditsCard, text)
	case AwaitingValidityUser:
		return p.stepUser(ctx, actor, s, textAskValidityUser, p.showValidityCard, text)
	case AwaitingCreditAmount:
		return p.stepCreditAmount(ctx, actor, s, text)
	case AwaitingValidityDays:
		return p.stepValidityDays(ctx, actor, s, text)
	case AwaitingBroadcastText:
		return p.stepBroadcast(ctx, actor, text)
	case AwaitingDefaultVoice:
		return p.stepDefaultVoice(ctx, actor, s, text)
	case AwaitingVoiceAdd:
		return p.stepVoiceAdd(ctx, actor, s, text)
	case AwaitingVoiceEditIndex:
		return p.stepVoiceEditIndex(ctx, actor, s, text)
	case AwaitingVoiceEdit:
		return p.stepVoiceEdit(ctx, actor, s, text)
	case AwaitingVoiceRemoveIndex:
		return p.stepVoiceRemove(ctx, actor, s, text)
	case AwaitingAdminID:
		return p.stepAdminID(ctx, actor, s, text)
	}
	return fmt.Errorf("admin: unknown step %T", pending)
}

func (p *Panel) stepUser(ctx context.Context, actor int64, pending Pending, prompt string,
	show func(ctx context.Context, actor, userID int64) error, text string) error {
	id, err := parse.ParseAmount(text)
	if err != nil {
		return p.reprompt(ctx, actor, pending, parseProblem(err), prompt)
	}
	if id.Value == 0 {
		return p.reprompt(ctx, actor, pending, problemUserID, prompt)
	}
	p.warnSign(ctx, actor, id)
	return show(ctx, actor, id.Value)
}

func (p *Panel) stepCreditAmount(ctx context.Context, actor int64, s AwaitingCreditAmount, text string) error {
	amount, err := parse.ParseAmount(text)
	if err != nil {
		return p.reprompt(ctx, actor, s, parseProblem(err), textAskAmount(s.Op, s.UserID))
	}
	p.warnSign(ctx, actor, amount)
	if err := p.repo.EnsureUser(ctx, s.UserID, nil); err != nil {
		return err
	}

	var msg string
	switch s.Op {
	case CreditRemove:
		res, err := p.repo.RemoveCredits(ctx, s.UserID, amount.Value)
		if err != nil {
			return err
		}
		msg = textCreditsRemoved(s.UserID, res)
	case CreditSet:
		if err := p.repo.SetCredits(ctx, s.UserID, amount.Value); err != nil {
			return err
		}
		msg = textCreditsApplied(CreditSet, s.UserID, amount.Value, amount.Value)
	default:
		balance, err := p.repo.AddCredits(ctx, s.UserID, amount.Value)
		if err != nil {
			return err
		}
		msg = textCreditsApplied(CreditAdd, s.UserID, amount.Value, balance)
	}
	logger.Info(ctx, "admin", "credits.applied",
		slog.Int64("user_id", actor),
		slog.Int64("target_id", s.UserID),
		slog.String("op", string(s.Op)),
		slog.Int64("amount", amount.Value),
	)
	p.reply(ctx, actor, msg, creditsKeyboard(s.UserID))
	return nil
}

func (p *Panel) stepValidityDays(ctx context.Context, actor int64, s AwaitingValidityDays, text string) error {
	amount, err := parse.ParseAmount(text)
	if err != nil {
		return p.reprompt(ctx, actor, s, parseProblem(err), textAskDays(s.UserID))
	}
	days := amount.Value
	if days == 0 || days > maxValidityDays {
		return p.reprompt(ctx, actor, s, problemDays, textAskDays(s.UserID))
	}
	p.warnSign(ctx, actor, amount)
	if err := p.repo.EnsureUser(ctx, s.UserID, nil); err != nil {
		return err
	}
	u, err := p.repo.SetValidity(ctx, s.UserID, int(days))
	if err != nil {
		return err
	}
	logger.Info(ctx, "admin", "validity.set",
		slog.Int64("user_id", actor),
		slog.Int64("target_id", s.UserID),
		slog.Int64("days", days),
	)
	p.reply(ctx, actor, textValiditySet(u, int(days)), validityKeyboard(s.UserID))
	return nil
}

// maxValidityDays keeps the window representable as a time.Duration.
const maxValidityDays = 100 * 365

// stepBroadcast snapshots the recipient list and fans out on a separate
// goroutine; the admin is told the totals when it finishes.
func (p *Panel) stepBroadcast(ctx context.Context, actor int64, text string) error {
	users, err := p.repo.ListUsers(ctx, 0)
	if err != nil {
		return err
	}
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	p.reply(ctx, actor, textBroadcastStarted(len(ids)), nil)

	// Detached from the update context: a broadcast runs to completion.
	bg := logger.WithRID(logger.WithUpdateMeta(context.Background(), 0, actor, actor), logger.RIDFrom(ctx))
	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error(bg, "admin", "broadcast.panic", slog.Any("panic", r))
				p.reply(bg, actor, textGenericFailure, nil)
			}
		}()
		res := p.bcast.Run(bg, text, ids)
		p.reply(bg, actor, textBroadcastFinished(res.Sent, res.Failed), nil)
	}()
	return nil
}

func (p *Panel) stepDefaultVoice(ctx context.Context, actor int64, s AwaitingDefaultVoice, text string) error {
	id, err := parse.VoiceID(text)
	if err != nil {
		current, derr := p.voices.DefaultVoiceID(ctx)
		if derr != nil {
			return derr
		}
		return p.reprompt(ctx, actor, s, problemVoiceID, textAskDefaultVoice(current))
	}
	if err := p.voices.SetDefaultVoiceID(ctx, id); err != nil {
		return err
	}
	p.reply(ctx, actor, textDefaultVoiceUpdated(id), nil)
	return nil
}

func (p *Panel) stepVoiceAdd(ctx context.Context, actor int64, s AwaitingVoiceAdd, text string) error {
	id, name, err := parse.IDNamePair(text)
	if err != nil {
		return p.reprompt(ctx, actor, s, parseProblem(err), textAskVoiceAdd)
	}
	if err := p.voices.Add(ctx, voices.Profile{ID: id, Name: name}); err != nil {
		return err
	}
	return p.replyVoices(ctx, actor, textVoiceAdded)
}

func (p *Panel) stepVoiceEditIndex(ctx context.Context, actor int64, s AwaitingVoiceEditIndex, text string) error {
	n, err := p.position(ctx, actor, text, s.Count)
	if err != nil {
		return p.reprompt(ctx, actor, s, indexProblem(err, s.Count), textIndexRange(s.Count))
	}
	catalog, err := p.voices.Load(ctx)
	if err != nil {
		return err
	}
	idx := int(n - 1)
	if idx >= len(catalog) {
		p.reply(ctx, actor, textInvalidVoice, nil)
		return nil
	}
	return p.ask(ctx, actor, AwaitingVoiceEdit{Index: idx}, textAskVoiceEdit(catalog[idx]))
}

// stepVoiceEdit accepts "<id>" or "<id> | <name>"; a bare id keeps the current name.
func (p *Panel) stepVoiceEdit(ctx context.Context, actor int64, s AwaitingVoiceEdit, text string) error {
	var (
		id, name string
		err      error
	)
	if strings.Contains(text, "|") {
		id, name, err = parse.IDNamePair(text)
	} else {
		id, err = parse.VoiceID(text)
	}
	if err != nil {
		catalog, lerr := p.voices.Load(ctx)
		if lerr != nil {
			return lerr
		}
		if s.Index >= len(catalog) {
			p.reply(ctx, actor, textInvalidVoice, nil)
			return nil
		}
		return p.reprompt(ctx, actor, s, parseProblem(err), textAskVoiceEdit(catalog[s.Index]))
	}

	updated, err := p.voices.EditAt(ctx, s.Index, id, name)
	if errors.Is(err, voices.ErrIndexOutOfRange) {
		p.reply(ctx, actor, textInvalidVoice, nil)
		return nil
	}
	if err != nil {
		return err
	}
	return p.replyVoices(ctx, actor, textVoiceUpdated(updated))
}

func (p *Panel) stepVoiceRemove(ctx context.Context, actor int64, s AwaitingVoiceRemoveIndex, text string) error {
	n, err := p.position(ctx, actor, text, s.Count)
	if err != nil {
		return p.reprompt(ctx, actor, s, indexProblem(err, s.Count), textIndexRange(s.Count))
	}
	removed, err := p.voices.RemoveAt(ctx, int(n-1))
	if errors.Is(err, voices.ErrIndexOutOfRange) {
		p.reply(ctx, actor, textInvalidVoice, nil)
		return nil
	}
	if err != nil {
		return err
	}
	current, err := p.voices.DefaultVoiceID(ctx)
	if err != nil {
		return err
	}
	return p.replyVoices(ctx, actor, textVoiceRemoved(removed, current))
}

func (p *Panel) stepAdminID(ctx context.Context, actor int64, s AwaitingAdminID, text string) error {
	amount, err := parse.ParseAmount(text)
	if err != nil {
		return p.reprompt(ctx, actor, s, parseProblem(err), textAskAdminID)
	}
	id := amount.Value
	if id == 0 {
		return p.reprompt(ctx, actor, s, problemUserID, textAskAdminID)
	}
	p.warnSign(ctx, actor, amount)
	if err := p.repo.AddAdmin(ctx, id); err != nil {
		return err
	}
	logger.Info(ctx, "admin", "admin.added",
		slog.Int64("user_id", actor),
		slog.Int64("target_id", id),
	)
	p.reply(ctx, actor, textAdminAdded(id), nil)
	return nil
}

func (p *Panel) replyVoices(ctx context.Context, actor int64, text string) error {
	catalog, err := p.voices.Load(ctx)
	if err != nil {
		return err
	}
	p.reply(ctx, actor, text, voicesKeyboard(catalog))
	return nil
}

// warnSign tells the admin that a leading minus was dropped from an accepted number.
func (p *Panel) warnSign(ctx context.Context, actor int64, a parse.Amount) {
	if a.SignDropped {
		p.reply(ctx, actor, fmt.Sprintf(textNegativeIgnored, a.Value), nil)
	}
}

// position reads a 1-based catalog position in [1, count].
func (p *Panel) position(ctx context.Context, actor int64, text string, count int) (int64, error) {
	a, err := parse.ParseAmount(text)
	if err != nil {
		return 0, err
	}
	if a.Value < 1 || a.Value > int64(count) {
		return 0, errOutOfRange
	}
	p.warnSign(ctx, actor, a)
	return a.Value, nil
}

var errOutOfRange = errors.New("position out of range")

func parseProblem(err error) string {
	var pe *parse.Error
	if !errors.As(err, &pe) {
		return err.Error()
	}
	switch pe.Kind {
	case parse.NoNumberFound:
		return "No number found."
	case parse.NumberTooLarge:
		return "Number is too large."
	case parse.MissingSeparator:
		return "Missing \"|\" separator."
	case parse.IDTooShort:
		return fmt.Sprintf("Voice ID must be at least %d characters.", parse.MinVoiceIDLength)
	}
	return pe.Error()
}

func indexProblem(err error, count int) string {
	if !errors.Is(err, errOutOfRange) {
		return parseProblem(err)
	}
	return fmt.Sprintf("No voice at that position (1-%d).", count)
}
