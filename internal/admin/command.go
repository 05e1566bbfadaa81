package admin

import (
	"errors"
	"strconv"
	"strings"
)

// Prefix is the callback key routed to the admin panel.
const Prefix = "admin"

// ErrMalformedCommand is returned for callback data outside the admin grammar.
var ErrMalformedCommand = errors.New("admin: malformed command")

// Section names the top level menu entry of a command.
type Section string

// Menu sections.
const (
	SectionMenu         Section = "menu"
	SectionCredits      Section = "credits"
	SectionValidity     Section = "validity"
	SectionListUsers    Section = "list_users"
	SectionListPremium  Section = "list_premium"
	SectionBroadcast    Section = "broadcast"
	SectionDefaultVoice Section = "default_voice"
	SectionVoices       Section = "voices"
	SectionDownload     Section = "download"
	SectionAdmins       Section = "admins"
)

// Action is the sub action inside a section; empty opens the section itself.
type Action string

// Sub actions.
const (
	ActionNone   Action = ""
	ActionList   Action = "list"
	ActionManual Action = "manual"
	ActionUser   Action = "user"
	ActionAdd    Action = "add"
	ActionRemove Action = "remove"
	ActionSet    Action = "set"
	ActionEdit   Action = "edit"
	ActionReset  Action = "reset"
)

// Command is a parsed admin callback.
type Command struct {
	Section Section
	Action  Action
	// UserID is set for user scoped credits, validity and admins actions.
	UserID int64
	// Index is the 0-based catalog position of voices:edit:<index>; HasIndex tells it apart from 0.
	Index    int
	HasIndex bool
}

// String renders the command back into callback data.
func (c Command) String() string {
	parts := []string{Prefix, string(c.Section)}
	if c.Action != ActionNone {
		parts = append(parts, string(c.Action))
	}
	switch {
	case c.UserID != 0:
		parts = append(parts, strconv.FormatInt(c.UserID, 10))
	case c.HasIndex:
		parts = append(parts, strconv.Itoa(c.Index))
	}
	return strings.Join(parts, ":")
}

// Name is the metrics/log label of the command.
func (c Command) Name() string {
	if c.Action == ActionNone {
		return string(c.Section)
	}
	return string(c.Section) + "." + string(c.Action)
}

type grammar struct {
	plain  map[Action]bool // actions without parameters
	userID map[Action]bool // actions taking a user id
}

var sections = map[Section]grammar{
	SectionMenu:         {},
	SectionListUsers:    {},
	SectionListPremium:  {},
	SectionBroadcast:    {},
	SectionDefaultVoice: {},
	SectionDownload:     {},
	SectionCredits: {
		plain:  map[Action]bool{ActionList: true, ActionManual: true},
		userID: map[Action]bool{ActionUser: true, ActionAdd: true, ActionRemove: true, ActionSet: true},
	},
	SectionValidity: {
		plain: map[Action]bool{ActionList: true, ActionManual: true},
		// add and set both open the days prompt; the window is always replaced.
		userID: map[Action]bool{ActionUser: true, ActionAdd: true, ActionSet: true, ActionRemove: true},
	},
	SectionVoices: {
		plain: map[Action]bool{ActionAdd: true, ActionEdit: true, ActionRemove: true, ActionReset: true},
	},
	SectionAdmins: {
		plain:  map[Action]bool{ActionAdd: true},
		userID: map[Action]bool{ActionRemove: true},
	},
}

// ParseCommand parses callback data of the form admin:<section>[:<action>[:<param>]].
// Parameters are decimal integers: a positive user id or a 0-based voice index.
func ParseCommand(data string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(data), ":")
	if len(parts) < 2 || parts[0] != Prefix {
		return Command{}, ErrMalformedCommand
	}
	cmd := Command{Section: Section(parts[1])}
	g, ok := sections[cmd.Section]
	if !ok {
		return Command{}, ErrMalformedCommand
	}
	if len(parts) == 2 {
		return cmd, nil
	}

	cmd.Action = Action(parts[2])
	params := parts[3:]
	switch {
	case g.userID[cmd.Action]:
		if len(params) != 1 {
			return Command{}, ErrMalformedCommand
		}
		id, err := parseUint(params[0])
		if err != nil || id <= 0 {
			return Command{}, ErrMalformedCommand
		}
		cmd.UserID = id
	case cmd.Section == SectionVoices && cmd.Action == ActionEdit && len(params) == 1:
		idx, err := parseUint(params[0])
		if err != nil || idx > maxIndex {
			return Command{}, ErrMalformedCommand
		}
		cmd.Index, cmd.HasIndex = int(idx), true
	case g.plain[cmd.Action]:
		if len(params) != 0 {
			return Command{}, ErrMalformedCommand
		}
	default:
		return Command{}, ErrMalformedCommand
	}
	return cmd, nil
}

const maxIndex = 1 << 20

// parseUint accepts plain decimal digits only; signs and blanks are malformed.
func parseUint(s string) (int64, error) {
	if s == "" {
		return 0, ErrMalformedCommand
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, ErrMalformedCommand
		}
	}
	return strconv.ParseInt(s, 10, 64)
}
