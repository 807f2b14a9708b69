// Package protocol owns the wire contract shared by both inbound channels.
//
// Ownership boundary:
// - channel identity and connection-state signal
// - decode error taxonomy (malformed vs unknown)
// - little-endian primitives (wire), per-channel codecs (custom, qr)
// - capture framing for recorded streams (frame)
//
// Byte order is little-endian for every payload field. Buffers handed to a
// codec are owned by the transport for the duration of one call and are never
// retained.
package protocol
