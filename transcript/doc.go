// Package transcript owns all conversation state: an append-only,
// ordered message log per conversation plus the workspace registry of
// conversations and personas.
//
// The store is the single source of truth. Every other component requests
// mutations through it and never holds a second mutable copy; reads return
// deep-copied snapshots so a playback pass can keep iterating an old
// sequence while a vote patches the latest one.
package transcript
