// Package store owns the on-disk coordination journal.
//
// The journal is a line-delimited JSON file holding one immutable event per
// line. Appends are serialized across OS processes with a claim-file lock
// next to the journal; the next sequence number is always derived from the
// durable tail of the file, never from in-process state, because writers are
// independent processes with no shared memory.
//
// Reads never take the append lock. A trailing line without a newline is an
// interrupted append and is treated as not yet durable: readers ignore it
// and the next locked append truncates it before writing.
package store
