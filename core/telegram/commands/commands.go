// Package commands describes the slash commands a bot exposes.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Access decides who may run a command and which command menu lists it.
type Access int

const (
	// Public commands run for everyone and appear in the default menu.
	Public Access = iota
	// Admin commands run behind the admin check and appear only in admin chats.
	Admin
	// Hidden commands run for everyone and never appear in a menu.
	Hidden
)

func (a Access) String() string {
	switch a {
	case Public:
		return "public"
	case Admin:
		return "admin"
	case Hidden:
		return "hidden"
	}
	return "unknown"
}

// Command is a slash command with its handler and menu metadata.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	Access      Access
	// Aliases are matched by the text router, with or without the slash.
	Aliases []string
}

// ListedFor reports whether the command belongs in the menu of an admin
// chat (admin true) or of everyone else.
func (c Command) ListedFor(admin bool) bool {
	switch c.Access {
	case Public:
		return true
	case Admin:
		return admin
	}
	return false
}
