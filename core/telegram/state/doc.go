// Package state provides a per-user session store for Telegram bots. The
// stored state type is a type parameter; a bot plugs in its own dialogue states.
package state
