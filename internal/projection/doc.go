// Package projection materializes shared coordination state from the
// ordered event stream.
//
// State is a pure function of the event sequence: replaying the same prefix
// of the journal always produces identical state, in any process. Reducers
// never read the wall clock or randomness; the only time-dependent fields
// are the ones embedded in event payloads and envelopes.
//
// Stats are computed in the same pass as the fold so callers asking for both
// never read the journal twice.
package projection
