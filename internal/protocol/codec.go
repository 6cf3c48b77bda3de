package protocol

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Encode serializes a packet: a big-endian uint16 total length, the tag
// NUL-padded to TagSize bytes, then the payload.
func Encode(tag string, payload []byte) ([]byte, error) {
	if len(tag) > TagSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("tag %q exceeds %d bytes", tag, TagSize)}
	}
	if len(payload) > MaxPayloadSize {
		return nil, &ProtocolError{Reason: fmt.Sprintf("payload of %d bytes exceeds the %d-byte packet limit", len(payload), MaxPayloadSize)}
	}

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint16(buf[:LengthSize], uint16(HeaderSize+len(payload)))
	copy(buf[LengthSize:HeaderSize], tag) // remaining tag bytes stay NUL
	copy(buf[HeaderSize:], payload)
	return buf, nil
}

// WritePacket encodes one packet and writes it to w in a single call.
func WritePacket(w io.Writer, tag string, payload []byte) error {
	buf, err := Encode(tag, payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(buf); err != nil {
		return &TransportError{Op: "write " + tag, Err: err}
	}
	return nil
}

// ReadPacket reads exactly one packet from r, blocking until all of its
// bytes arrive. io.ReadFull loops over partial reads, so a source that
// delivers one byte at a time still yields a complete packet. A stream
// that closes or errors mid-packet surfaces as a TransportError.
func ReadPacket(r io.Reader) (Packet, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:LengthSize]); err != nil {
		return Packet{}, &TransportError{Op: "read length prefix", Err: err}
	}

	total := int(binary.BigEndian.Uint16(header[:LengthSize]))
	if total < HeaderSize {
		return Packet{}, &ProtocolError{Reason: fmt.Sprintf("length prefix %d is below the %d-byte header", total, HeaderSize)}
	}

	if _, err := io.ReadFull(r, header[LengthSize:]); err != nil {
		return Packet{}, &TransportError{Op: "read tag", Err: err}
	}
	tag := string(bytes.TrimRight(header[LengthSize:], "\x00"))

	payload := make([]byte, total-HeaderSize)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Packet{}, &TransportError{Op: "read payload", Err: err}
	}

	return Packet{Tag: tag, Payload: payload}, nil
}
