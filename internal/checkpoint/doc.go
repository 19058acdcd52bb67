// Package checkpoint persists projection snapshots in a SQLite sidecar so
// replay can resume from a known sequence instead of folding the whole
// journal on every read.
//
// The sidecar is a cache, never a source of truth. Deleting it is always
// safe; the only cost is a full replay on the next projection. The journal
// file itself stays flat JSONL and is never moved into the database.
package checkpoint
