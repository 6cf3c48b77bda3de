package session

import (
	"errors"
	"fmt"
	"io"

	"github.com/rlind/tinyft/internal/protocol"
	"github.com/rlind/tinyft/internal/sink"
	"github.com/rlind/tinyft/internal/util"
)

// receivePayload consumes the data connection. The tag of the first packet
// selects the sub-protocol: FNAME starts a listing, FILE starts a file
// transfer, anything else is a protocol violation and stops further reads.
// In every outcome exactly one ACK goes out on the control connection once
// the session is over; the server blocks on it before tearing down.
func receivePayload(data io.Reader, ctrl io.Writer, snk sink.Sink, res *Result) (err error) {
	defer func() {
		ackErr := protocol.WritePacket(ctrl, protocol.TagAck, nil)
		if err == nil {
			err = ackErr
		}
	}()

	first, err := protocol.ReadPacket(data)
	if err != nil {
		return err
	}

	switch first.Tag {
	case protocol.TagFilename:
		return receiveListing(data, first, res)
	case protocol.TagFile:
		return receiveFile(data, first, snk, res)
	default:
		return &protocol.ProtocolError{Reason: fmt.Sprintf("unexpected first data tag %q", first.Tag)}
	}
}

// receiveListing emits one filename per packet until DONE arrives. The
// DONE packet terminates the loop without contributing an entry.
func receiveListing(data io.Reader, first protocol.Packet, res *Result) error {
	pkt := first
	for {
		name := string(pkt.Payload)
		res.Listing = append(res.Listing, name)
		util.Print("  %s", name)

		next, err := protocol.ReadPacket(data)
		if err != nil {
			return err
		}
		if next.Tag == protocol.TagDone {
			return nil
		}
		pkt = next
	}
}

// receiveFile streams every subsequent packet's payload into the sink
// until DONE. The terminal packet's payload is written too; the companion
// server always sends DONE empty, so the bytes on disk are the same either
// way.
func receiveFile(data io.Reader, first protocol.Packet, snk sink.Sink, res *Result) error {
	name := string(first.Payload)
	out, err := snk.Create(name)
	if err != nil {
		if errors.Is(err, sink.ErrExists) {
			// The server streams the file regardless. Consume it so the
			// ACK on the control connection stays aligned with what the
			// server believes was delivered.
			if drainErr := drainData(data); drainErr != nil {
				return drainErr
			}
		}
		return err
	}

	var tr util.Transfer
	for {
		pkt, err := protocol.ReadPacket(data)
		if err != nil {
			out.Close()
			return err
		}
		if len(pkt.Payload) > 0 {
			if _, err := out.Write(pkt.Payload); err != nil {
				out.Close()
				return fmt.Errorf("write %q: %w", name, err)
			}
			tr.Add(len(pkt.Payload))
		}
		if pkt.Tag == protocol.TagDone {
			break
		}
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %q: %w", name, err)
	}

	res.SavedAs = name
	util.LogInfo("file transfer complete: %s (%s)", name, tr.Summary())
	return nil
}

// drainData discards packets from the data connection through the
// terminating DONE.
func drainData(data io.Reader) error {
	for {
		pkt, err := protocol.ReadPacket(data)
		if err != nil {
			return err
		}
		if pkt.Tag == protocol.TagDone {
			return nil
		}
	}
}
