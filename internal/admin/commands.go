package admin

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/m3rciful/voicebot/core/logger"
	"github.com/m3rciful/voicebot/internal/ledger"
)

func (p *Panel) dispatch(ctx context.Context, actor int64, cmd Command) error {
	switch cmd.Section {
	case SectionMenu:
		return p.showMenu(ctx, actor)
	case SectionCredits:
		return p.credits(ctx, actor, cmd)
	case SectionValidity:
		return p.validity(ctx, actor, cmd)
	case SectionListUsers:
		return p.listUsers(ctx, actor)
	case SectionListPremium:
		return p.listPremium(ctx, actor)
	case SectionBroadcast:
		return p.ask(ctx, actor, AwaitingBroadcastText{}, textAskBroadcast)
	case SectionDefaultVoice:
		current, err := p.voices.DefaultVoiceID(ctx)
		if err != nil {
			return err
		}
		return p.ask(ctx, actor, AwaitingDefaultVoice{}, textAskDefaultVoice(current))
	case SectionVoices:
		return p.voicesCommand(ctx, actor, cmd)
	case SectionDownload:
		return p.download(ctx, actor)
	case SectionAdmins:
		return p.admins(ctx, actor, cmd)
	}
	return ErrMalformedCommand
}

func (p *Panel) showMenu(ctx context.Context, actor int64) error {
	p.sessions.Clear(actor)
	p.reply(ctx, actor, textMenu, menuKeyboard())
	return nil
}

func (p *Panel) credits(ctx context.Context, actor int64, cmd Command) error {
	switch cmd.Action {
	case ActionNone:
		p.reply(ctx, actor, textCreditsMenu, sectionKeyboard(SectionCredits))
		return nil
	case ActionList:
		return p.pickUser(ctx, actor, SectionCredits)
	case ActionManual:
		return p.ask(ctx, actor, AwaitingCreditUser{}, textAskCreditUser)
	case ActionUser:
		return p.showCreditsCard(ctx, actor, cmd.UserID)
	case ActionAdd, ActionRemove, ActionSet:
		if err := p.repo.EnsureUser(ctx, cmd.UserID, nil); err != nil {
			return err
		}
		op := CreditOp(cmd.Action)
		return p.ask(ctx, actor, AwaitingCreditAmount{UserID: cmd.UserID, Op: op}, textAskAmount(op, cmd.UserID))
	}
	return ErrMalformedCommand
}

func (p *Panel) validity(ctx context.Context, actor int64, cmd Command) error {
	switch cmd.Action {
	case ActionNone:
		p.reply(ctx, actor, textValidityMenu, sectionKeyboard(SectionValidity))
		return nil
	case ActionList:
		return p.pickUser(ctx, actor, SectionValidity)
	case ActionManual:
		return p.ask(ctx, actor, AwaitingValidityUser{}, textAskValidityUser)
	case ActionUser:
		return p.showValidityCard(ctx, actor, cmd.UserID)
	case ActionAdd, ActionSet:
		if err := p.repo.EnsureUser(ctx, cmd.UserID, nil); err != nil {
			return err
		}
		return p.ask(ctx, actor, AwaitingValidityDays{UserID: cmd.UserID}, textAskDays(cmd.UserID))
	case ActionRemove:
		if err := p.repo.EnsureUser(ctx, cmd.UserID, nil); err != nil {
			return err
		}
		if err := p.repo.RemoveValidity(ctx, cmd.UserID); err != nil {
			return err
		}
		p.reply(ctx, actor, textValidityRemoved(cmd.UserID), validityKeyboard(cmd.UserID))
		return nil
	}
	return ErrMalformedCommand
}

func (p *Panel) pickUser(ctx context.Context, actor int64, section Section) error {
	users, err := p.repo.ListUsers(ctx, p.opts.ListLimit)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		p.reply(ctx, actor, textNoUsers, sectionKeyboard(section))
		return nil
	}
	p.reply(ctx, actor, "Select a user:", userPickerKeyboard(section, users))
	return nil
}

func (p *Panel) showCreditsCard(ctx context.Context, actor, userID int64) error {
	u, err := p.ensureAndGet(ctx, userID)
	if err != nil {
		return err
	}
	p.reply(ctx, actor, textCreditsCard(u), creditsKeyboard(userID))
	return nil
}

func (p *Panel) showValidityCard(ctx context.Context, actor, userID int64) error {
	u, err := p.ensureAndGet(ctx, userID)
	if err != nil {
		return err
	}
	p.reply(ctx, actor, textValidityCard(u), validityKeyboard(userID))
	return nil
}

func (p *Panel) ensureAndGet(ctx context.Context, userID int64) (ledger.User, error) {
	if err := p.repo.EnsureUser(ctx, userID, nil); err != nil {
		return ledger.User{}, err
	}
	return p.repo.GetUser(ctx, userID)
}

func (p *Panel) listUsers(ctx context.Context, actor int64) error {
	users, err := p.repo.ListUsers(ctx, p.opts.ListLimit)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		p.reply(ctx, actor, textNoUsers, nil)
		return nil
	}
	lines := make([]string, 0, len(users))
	for _, u := range users {
		lines = append(lines, userLine(u))
	}
	p.replyChunks(ctx, actor, lines, "\n", nil)
	return nil
}

func (p *Panel) listPremium(ctx context.Context, actor int64) error {
	users, err := p.repo.ListPremiumUsers(ctx, p.opts.Now())
	if err != nil {
		return err
	}
	if len(users) == 0 {
		p.reply(ctx, actor, textNoPremium, nil)
		return nil
	}
	blocks := make([]string, 0, len(users))
	for _, u := range users {
		blocks = append(blocks, premiumBlock(u))
	}
	p.replyChunks(ctx, actor, blocks, "\n", nil)
	return nil
}

func (p *Panel) voicesCommand(ctx context.Context, actor int64, cmd Command) error {
	switch cmd.Action {
	case ActionNone:
		catalog, err := p.voices.Load(ctx)
		if err != nil {
			return err
		}
		current, err := p.voices.DefaultVoiceID(ctx)
		if err != nil {
			return err
		}
		p.reply(ctx, actor, textVoicesMenu(catalog, current), voicesKeyboard(catalog))
		return nil
	case ActionAdd:
		return p.ask(ctx, actor, AwaitingVoiceAdd{}, textAskVoiceAdd)
	case ActionEdit:
		catalog, err := p.voices.Load(ctx)
		if err != nil {
			return err
		}
		if !cmd.HasIndex {
			return p.ask(ctx, actor, AwaitingVoiceEditIndex{Count: len(catalog)}, textAskIndex("edit", catalog))
		}
		if cmd.Index >= len(catalog) {
			p.reply(ctx, actor, textInvalidVoice, nil)
			return nil
		}
		return p.ask(ctx, actor, AwaitingVoiceEdit{Index: cmd.Index}, textAskVoiceEdit(catalog[cmd.Index]))
	case ActionRemove:
		catalog, err := p.voices.Load(ctx)
		if err != nil {
			return err
		}
		return p.ask(ctx, actor, AwaitingVoiceRemoveIndex{Count: len(catalog)}, textAskIndex("remove", catalog))
	case ActionReset:
		if err := p.voices.ResetToDefaults(ctx); err != nil {
			return err
		}
		p.reply(ctx, actor, textVoicesReset, voicesKeyboard(p.voices.Defaults()))
		return nil
	}
	return ErrMalformedCommand
}

func (p *Panel) download(ctx context.Context, actor int64) error {
	path := p.opts.DatabasePath
	if path == "" {
		p.reply(ctx, actor, textDBNotFound, nil)
		return nil
	}
	if st, err := os.Stat(path); err != nil || st.IsDir() {
		logger.Warn(ctx, "admin", "download.missing",
			slog.String("path", path),
		)
		p.reply(ctx, actor, textDBNotFound, nil)
		return nil
	}
	return p.out.SendDocument(ctx, actor, path, textDBCaption)
}

func (p *Panel) admins(ctx context.Context, actor int64, cmd Command) error {
	switch cmd.Action {
	case ActionNone:
		ids, err := p.repo.ListAdmins(ctx)
		if err != nil {
			return err
		}
		p.reply(ctx, actor, textAdmins(ids), adminsKeyboard(ids, actor))
		return nil
	case ActionAdd:
		return p.ask(ctx, actor, AwaitingAdminID{}, textAskAdminID)
	case ActionRemove:
		if cmd.UserID == actor {
			p.reply(ctx, actor, textRemoveSelf, nil)
			return nil
		}
		if err := p.repo.RemoveAdmin(ctx, cmd.UserID); err != nil {
			if errors.Is(err, ledger.ErrNotFound) {
				p.reply(ctx, actor, textNotAdmin(cmd.UserID), nil)
				return nil
			}
			return err
		}
		p.sessions.Clear(cmd.UserID)
		logger.Info(ctx, "admin", "admin.removed",
			slog.Int64("user_id", actor),
			slog.Int64("target_id", cmd.UserID),
		)
		p.reply(ctx, actor, textAdminRemoved(cmd.UserID), nil)
		return nil
	}
	return ErrMalformedCommand
}
