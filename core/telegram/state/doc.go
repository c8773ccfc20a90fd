// Package state persists per-chat conversation sessions for Telegram bots.
// It is domain-agnostic: a Session carries the current FSM state, the stack of
// previously visited states and an opaque JSON payload owned by the bot.
//
// Every backend implements the same atomic read-modify-write contract through
// Store.Update, so a single update is either applied completely or not at all.
package state
