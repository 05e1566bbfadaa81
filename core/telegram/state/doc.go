// Package state provides an in-memory, actor-keyed conversation session store for Telegram bots.
// It is domain-agnostic: the session payload type is chosen by the caller.
package state
