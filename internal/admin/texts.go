package admin

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/voicebot/core/telegram/format"
	tghelpers "github.com/m3rciful/voicebot/core/telegram/helpers"
	"github.com/m3rciful/voicebot/core/telegram/keyboard"
	"github.com/m3rciful/voicebot/internal/ledger"
	"github.com/m3rciful/voicebot/internal/voices"
)

// maxMessageLen keeps listings under Telegram's 4096 character limit.
const maxMessageLen = 4000

const (
	textMenu            = "⚙️ Admin Panel"
	textCreditsMenu     = "💳 Manage Credits\nPick a user from the list or enter an id."
	textValidityMenu    = "📅 Manage Validity\nPick a user from the list or enter an id."
	textAskCreditUser   = "Send User ID for credits:"
	textAskValidityUser = "Send User ID for validity:"
	textNoUsers         = "No users"
	textNoPremium       = "No premium users"
	textAskBroadcast    = "Send broadcast message:"
	textAskVoiceAdd     = "Send: <voice_id> | <voice_name>"
	textVoiceAdded      = "✅ Voice added successfully!"
	textVoicesReset     = "✅ Voices reset done!"
	textInvalidVoice    = "❌ Invalid voice"
	problemVoiceID      = "Invalid Voice ID"
	textDBNotFound      = "DB not found!"
	textDBCaption       = "Database backup"
	textAskAdminID      = "Send the Telegram ID of the new admin:"
	textRemoveSelf      = "❌ You cannot remove yourself."
	textGenericFailure  = "❌ Something went wrong. Start again from /admin."
	textNegativeIgnored = "⚠️ Negative sign ignored, using %d."
	problemDays         = "Days must be greater than 0."
	problemUserID       = "User ID must be greater than 0."
	textPremiumRule     = "----------------------"
)

func textError(err error) string {
	return "❌ Error: " + err.Error()
}

func textReprompt(problem, prompt string) string {
	return "❌ " + problem + "\n" + prompt
}

func textAskAmount(op CreditOp, userID int64) string {
	switch op {
	case CreditRemove:
		return fmt.Sprintf("Send amount to REMOVE for %d:", userID)
	case CreditSet:
		return fmt.Sprintf("Send new credit balance for %d:", userID)
	default:
		return fmt.Sprintf("Send amount to ADD for %d:", userID)
	}
}

func textAskDays(userID int64) string {
	return fmt.Sprintf("Send validity days for %d:", userID)
}

func textCreditsCard(u ledger.User) string {
	return fmt.Sprintf("User %d (%s)\n💳 Credits: %d\nChoose credits action:",
		u.ID, format.Handle(u.Username), u.Credits)
}

func textValidityCard(u ledger.User) string {
	return fmt.Sprintf("User %d (%s)\n✅ Start: %s\n⏳ End: %s\nChoose validity action:",
		u.ID, format.Handle(u.Username),
		tghelpers.PrettyDate(u.ValidityStartAt), tghelpers.PrettyDate(u.ValidityExpireAt))
}

func textCreditsApplied(op CreditOp, userID, amount, balance int64) string {
	switch op {
	case CreditSet:
		return fmt.Sprintf("✅ Credits set to %d for %d", amount, userID)
	default:
		return fmt.Sprintf("✅ Added %d credits to %d\n💳 Balance: %d", amount, userID, balance)
	}
}

func textCreditsRemoved(userID int64, r ledger.Removal) string {
	s := fmt.Sprintf("✅ Removed %d credits from %d\n💳 Balance: %d", r.Removed, userID, r.Balance)
	if r.Clamped() {
		s += fmt.Sprintf("\n⚠️ Requested %d, balance floored at 0.", r.Requested)
	}
	return s
}

func textValiditySet(u ledger.User, days int) string {
	return fmt.Sprintf("✅ Validity set: %d days for %d\n⏳ End: %s",
		days, u.ID, tghelpers.PrettyDate(u.ValidityExpireAt))
}

func textValidityRemoved(userID int64) string {
	return fmt.Sprintf("✅ Validity removed for %d", userID)
}

func userLine(u ledger.User) string {
	return fmt.Sprintf("%d %s | credits=%d", u.ID, format.Handle(u.Username), u.Credits)
}

func premiumBlock(u ledger.User) string {
	return fmt.Sprintf("👤 User: %d\n💳 Credits: %d\n✅ Start: %s\n⏳ End: %s\n%s",
		u.ID, u.Credits,
		tghelpers.PrettyDate(u.ValidityStartAt), tghelpers.PrettyDate(u.ValidityExpireAt),
		textPremiumRule)
}

func textBroadcastStarted(n int) string {
	return fmt.Sprintf("📣 Broadcast started for %d users.", n)
}

func textBroadcastFinished(sent, failed int) string {
	return fmt.Sprintf("📣 Broadcast finished.\n✅ Sent: %d\n❌ Failed: %d", sent, failed)
}

func textAskDefaultVoice(current string) string {
	return fmt.Sprintf("Current default voice:\n%s\n\nSend new Default Voice ID:", current)
}

func textDefaultVoiceUpdated(id string) string {
	return "✅ Default voice updated:\n" + id
}

func catalogLines(catalog []voices.Profile) string {
	var b strings.Builder
	for i, p := range catalog {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, p.Name, p.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

func textVoicesMenu(catalog []voices.Profile, defaultID string) string {
	return fmt.Sprintf("🎛 Manage Voices\n%s\n\nDefault: %s\nSelect a voice to change ID:",
		catalogLines(catalog), defaultID)
}

func textAskIndex(verb string, catalog []voices.Profile) string {
	return fmt.Sprintf("%s\n\nSend the number of the voice to %s (1-%d):", catalogLines(catalog), verb, len(catalog))
}

func textIndexRange(count int) string {
	return fmt.Sprintf("Send a number between 1 and %d.", count)
}

func textAskVoiceEdit(p voices.Profile) string {
	return fmt.Sprintf("🎙 Voice: %s\nCurrent ID:\n%s\n\nSend NEW Voice ID (optionally: <voice_id> | <voice_name>):", p.Name, p.ID)
}

func textVoiceUpdated(p voices.Profile) string {
	return fmt.Sprintf("✅ Voice updated:\n%s\n%s", p.Name, p.ID)
}

func textVoiceRemoved(p voices.Profile, defaultID string) string {
	return fmt.Sprintf("✅ Voice removed: %s\nDefault voice: %s", p.Name, defaultID)
}

func textAdmins(ids []int64) string {
	if len(ids) == 0 {
		return "👮 Admins\nNo admins"
	}
	lines := make([]string, 0, len(ids)+1)
	lines = append(lines, "👮 Admins")
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("• %d", id))
	}
	return strings.Join(lines, "\n")
}

func textAdminAdded(id int64) string   { return fmt.Sprintf("✅ Admin added: %d", id) }
func textAdminRemoved(id int64) string { return fmt.Sprintf("✅ Admin removed: %d", id) }
func textNotAdmin(id int64) string     { return fmt.Sprintf("❌ %d is not an admin", id) }

// chunk joins lines into messages no longer than max bytes. A line that is
// longer than max on its own is cut on rune boundaries.
func chunk(lines []string, sep string, max int) []string {
	var (
		out []string
		cur strings.Builder
	)
	for _, line := range lines {
		for _, l := range splitLine(line, max) {
			if cur.Len() > 0 && cur.Len()+len(sep)+len(l) > max {
				out = append(out, cur.String())
				cur.Reset()
			}
			if cur.Len() > 0 {
				cur.WriteString(sep)
			}
			cur.WriteString(l)
		}
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

func splitLine(l string, max int) []string {
	if max <= 0 || len(l) <= max {
		return []string{l}
	}
	var parts []string
	for len(l) > max {
		cut := max
		for cut > 0 && !utf8.RuneStart(l[cut]) {
			cut--
		}
		if cut == 0 {
			_, cut = utf8.DecodeRuneInString(l)
		}
		parts = append(parts, l[:cut])
		l = l[cut:]
	}
	if l != "" {
		parts = append(parts, l)
	}
	return parts
}

func menuKeyboard() keyboard.Rows {
	return keyboard.Column(
		btn("💳 Manage Credits", Command{Section: SectionCredits}),
		btn("📅 Manage Validity", Command{Section: SectionValidity}),
		btn("👥 List Users", Command{Section: SectionListUsers}),
		btn("⭐ List Premium Users", Command{Section: SectionListPremium}),
		btn("📣 Broadcast", Command{Section: SectionBroadcast}),
		btn("🎙 Set Default Voice ID", Command{Section: SectionDefaultVoice}),
		btn("🎛 Manage Voices", Command{Section: SectionVoices}),
		btn("💾 Download Data", Command{Section: SectionDownload}),
		btn("👮 Manage Admins", Command{Section: SectionAdmins}),
	)
}

func sectionKeyboard(section Section) keyboard.Rows {
	return keyboard.Rows{
		{
			btn("📋 Users", Command{Section: section, Action: ActionList}),
			btn("🔎 Enter User ID", Command{Section: section, Action: ActionManual}),
		},
		{backToMenu()},
	}
}

func userPickerKeyboard(section Section, users []ledger.User) keyboard.Rows {
	rows := make(keyboard.Rows, 0, len(users)+1)
	for _, u := range users {
		rows = append(rows, []keyboard.InlineBtn{
			btn("👤 "+userLine(u), Command{Section: section, Action: ActionUser, UserID: u.ID}),
		})
	}
	return append(rows, []keyboard.InlineBtn{keyboard.BackButton(Command{Section: section}.String())})
}

func creditsKeyboard(userID int64) keyboard.Rows {
	return keyboard.Rows{
		{
			btn("➕ Add Credits", Command{Section: SectionCredits, Action: ActionAdd, UserID: userID}),
			btn("➖ Remove Credits", Command{Section: SectionCredits, Action: ActionRemove, UserID: userID}),
		},
		{btn("✏️ Set Credits", Command{Section: SectionCredits, Action: ActionSet, UserID: userID})},
		{backToMenu()},
	}
}

func validityKeyboard(userID int64) keyboard.Rows {
	return keyboard.Rows{
		{
			btn("✅ Set Validity", Command{Section: SectionValidity, Action: ActionSet, UserID: userID}),
			btn("❌ Remove Validity", Command{Section: SectionValidity, Action: ActionRemove, UserID: userID}),
		},
		{backToMenu()},
	}
}

func voicesKeyboard(catalog []voices.Profile) keyboard.Rows {
	rows := make(keyboard.Rows, 0, len(catalog)+3)
	for i, p := range catalog {
		rows = append(rows, []keyboard.InlineBtn{
			btn("🎙 "+p.Name, Command{Section: SectionVoices, Action: ActionEdit, Index: i, HasIndex: true}),
		})
	}
	return append(rows,
		[]keyboard.InlineBtn{
			btn("➕ Add Voice", Command{Section: SectionVoices, Action: ActionAdd}),
			btn("🗑 Remove Voice", Command{Section: SectionVoices, Action: ActionRemove}),
		},
		[]keyboard.InlineBtn{btn("♻️ Reset Voices", Command{Section: SectionVoices, Action: ActionReset})},
		[]keyboard.InlineBtn{backToMenu()},
	)
}

func adminsKeyboard(ids []int64, self int64) keyboard.Rows {
	rows := make(keyboard.Rows, 0, len(ids)+2)
	for _, id := range ids {
		if id == self {
			continue
		}
		rows = append(rows, []keyboard.InlineBtn{
			btn(fmt.Sprintf("❌ Remove %d", id), Command{Section: SectionAdmins, Action: ActionRemove, UserID: id}),
		})
	}
	return append(rows,
		[]keyboard.InlineBtn{btn("➕ Add Admin", Command{Section: SectionAdmins, Action: ActionAdd})},
		[]keyboard.InlineBtn{backToMenu()},
	)
}

func backToMenu() keyboard.InlineBtn {
	return keyboard.BackButton(Command{Section: SectionMenu}.String())
}

func btn(text string, cmd Command) keyboard.InlineBtn {
	return keyboard.InlineBtn{Text: text, Data: cmd.String()}
}
