// Package protocol defines the packet framing shared by the control and
// data connections.
package protocol

// Tag vocabulary. Tags are case-sensitive ASCII tokens, NUL-padded to
// TagSize bytes on the wire.
const (
	TagDataPort = "DPORT" // client→server: data port announcement (decimal ASCII)
	TagList     = "LIST"  // client→server: request a directory listing
	TagGet      = "GET"   // client→server: request a file, payload is the filename
	TagOkay     = "OKAY"  // server→client: negotiation go-ahead
	TagError    = "ERROR" // server→client: human-readable failure message
	TagFilename = "FNAME" // server→client: one listed filename per packet
	TagFile     = "FILE"  // server→client: filename announcement, then content chunks
	TagDone     = "DONE"  // server→client: terminates a listing or file stream
	TagAck      = "ACK"   // client→server: payload-receipt acknowledgment
	TagClose    = "CLOSE" // server→client: terminates the trailing-error drain
)

// Wire layout: [2 bytes total length, big-endian] [8 bytes tag] [payload].
const (
	LengthSize     = 2
	TagSize        = 8
	HeaderSize     = LengthSize + TagSize
	MaxPayloadSize = 0xFFFF - HeaderSize // the length prefix is a uint16
)

// Packet is one framed unit of (tag, payload). It is immutable and lives
// only for the duration of a single send or receive.
type Packet struct {
	Tag     string
	Payload []byte
}
