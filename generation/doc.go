// Package generation is the service boundary to the external discussion
// generation model. Given the latest conversation snapshot and the active
// roster it returns a batch of proposed turns plus a continuation flag.
//
// The boundary is stateless and failure-absorbing: connectivity or parsing
// problems are normalized to an empty response so the orchestrator never
// observes a raw transport error.
package generation
