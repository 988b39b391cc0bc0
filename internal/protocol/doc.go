// Package protocol owns the wire contract and framing primitives.
//
// Ownership boundary:
// - message value and type ordinals
// - fixed-header encode/decode
// - frame assembly for non-blocking reads
package protocol
