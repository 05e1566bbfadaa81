// Package format renders user facing fragments of Telegram messages.
package format

import "strings"

const unknownHandle = "@unknown"

// Handle renders a stored username as @name. A stored leading @ is not
// doubled; a missing or blank username renders as @unknown.
func Handle(username *string) string {
	if username == nil {
		return unknownHandle
	}
	name := strings.TrimPrefix(strings.TrimSpace(*username), "@")
	if name == "" {
		return unknownHandle
	}
	return "@" + name
}
