// Package event defines the canonical event envelope and event-type registry
// for the coordination log.
//
// Events are immutable coordination facts. The registry enforces payload
// validity before persistence assigns sequence numbers, and decodes known
// types into strongly typed payload shapes with a generic fallback for
// forward-compatible unknown types.
//
// A stable event contract is the foundation for replay determinism: every
// process folding the same ordered prefix of the log must compute identical
// state.
package event
