package session

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rlind/tinyft/internal/protocol"
	"github.com/rlind/tinyft/internal/sink"
)

// dataStream frames the given packets the way the server would send them
// on the data connection.
func dataStream(t *testing.T, pkts ...protocol.Packet) *bytes.Reader {
	t.Helper()
	var buf bytes.Buffer
	for _, p := range pkts {
		if err := protocol.WritePacket(&buf, p.Tag, p.Payload); err != nil {
			t.Fatalf("WritePacket failed: %v", err)
		}
	}
	return bytes.NewReader(buf.Bytes())
}

// sentPackets decodes everything the session wrote to the control
// connection.
func sentPackets(t *testing.T, ctrl *bytes.Buffer) []protocol.Packet {
	t.Helper()
	var pkts []protocol.Packet
	for ctrl.Len() > 0 {
		pkt, err := protocol.ReadPacket(ctrl)
		if err != nil {
			t.Fatalf("ReadPacket on control output failed: %v", err)
		}
		pkts = append(pkts, pkt)
	}
	return pkts
}

// assertSingleAck verifies the session sent exactly one ACK on the
// control connection, whatever the outcome.
func assertSingleAck(t *testing.T, ctrl *bytes.Buffer) {
	t.Helper()
	pkts := sentPackets(t, ctrl)
	if len(pkts) != 1 {
		t.Fatalf("Expected exactly one control packet, got %d", len(pkts))
	}
	if pkts[0].Tag != protocol.TagAck {
		t.Errorf("Control packet tag mismatch: got %q, want %q", pkts[0].Tag, protocol.TagAck)
	}
}

// TestListingTerminatesAtDone verifies the listing loop yields every FNAME
// payload and that DONE contributes no spurious empty entry.
func TestListingTerminatesAtDone(t *testing.T) {
	data := dataStream(t,
		protocol.Packet{Tag: protocol.TagFilename, Payload: []byte("a")},
		protocol.Packet{Tag: protocol.TagFilename, Payload: []byte("b")},
		protocol.Packet{Tag: protocol.TagDone},
	)
	var ctrl bytes.Buffer
	res := &Result{}

	if err := receivePayload(data, &ctrl, sink.Dir{Path: t.TempDir()}, res); err != nil {
		t.Fatalf("receivePayload failed: %v", err)
	}

	want := []string{"a", "b"}
	if len(res.Listing) != len(want) {
		t.Fatalf("Listing length mismatch: got %v, want %v", res.Listing, want)
	}
	for i := range want {
		if res.Listing[i] != want[i] {
			t.Errorf("Listing[%d] mismatch: got %q, want %q", i, res.Listing[i], want[i])
		}
	}
	assertSingleAck(t, &ctrl)
}

// TestFileTransferHappyPath verifies that chunks are concatenated into the
// sink under the server-supplied name and exactly one ACK follows.
func TestFileTransferHappyPath(t *testing.T) {
	data := dataStream(t,
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("out.txt")},
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("chunk1")},
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("chunk2")},
		protocol.Packet{Tag: protocol.TagDone},
	)
	var ctrl bytes.Buffer
	dir := t.TempDir()
	res := &Result{}

	if err := receivePayload(data, &ctrl, sink.Dir{Path: dir}, res); err != nil {
		t.Fatalf("receivePayload failed: %v", err)
	}

	if res.SavedAs != "out.txt" {
		t.Errorf("SavedAs mismatch: got %q, want %q", res.SavedAs, "out.txt")
	}
	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "chunk1chunk2" {
		t.Errorf("File content mismatch: got %q, want %q", got, "chunk1chunk2")
	}
	assertSingleAck(t, &ctrl)
}

// TestFileTransferWritesDonePayload pins the behavior for a terminal DONE
// packet that carries bytes: they are appended before the loop ends.
func TestFileTransferWritesDonePayload(t *testing.T) {
	data := dataStream(t,
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("out.txt")},
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("chunk")},
		protocol.Packet{Tag: protocol.TagDone, Payload: []byte("tail")},
	)
	var ctrl bytes.Buffer
	dir := t.TempDir()

	if err := receivePayload(data, &ctrl, sink.Dir{Path: dir}, &Result{}); err != nil {
		t.Fatalf("receivePayload failed: %v", err)
	}

	got, err := os.ReadFile(filepath.Join(dir, "out.txt"))
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "chunktail" {
		t.Errorf("File content mismatch: got %q, want %q", got, "chunktail")
	}
}

// TestFileTransferRefusesOverwrite verifies the no-overwrite guarantee:
// the existing bytes survive untouched, the failure is reported, the data
// stream is still drained, and the ACK still goes out.
func TestFileTransferRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.txt")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data := dataStream(t,
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("out.txt")},
		protocol.Packet{Tag: protocol.TagFile, Payload: []byte("replacement")},
		protocol.Packet{Tag: protocol.TagDone},
	)
	var ctrl bytes.Buffer

	err := receivePayload(data, &ctrl, sink.Dir{Path: dir}, &Result{})
	if !errors.Is(err, sink.ErrExists) {
		t.Fatalf("Expected ErrExists, got %v", err)
	}

	got, readErr := os.ReadFile(path)
	if readErr != nil {
		t.Fatalf("ReadFile failed: %v", readErr)
	}
	if string(got) != "original" {
		t.Errorf("Existing file was modified: got %q, want %q", got, "original")
	}
	if data.Len() != 0 {
		t.Errorf("Data stream not drained: %d bytes left", data.Len())
	}
	assertSingleAck(t, &ctrl)
}

// TestUnexpectedFirstTag verifies that an unknown first tag is a protocol
// violation: no further data reads, but the ACK still goes out.
func TestUnexpectedFirstTag(t *testing.T) {
	data := dataStream(t,
		protocol.Packet{Tag: protocol.TagDone},
		protocol.Packet{Tag: protocol.TagFilename, Payload: []byte("never read")},
	)
	var ctrl bytes.Buffer

	err := receivePayload(data, &ctrl, sink.Dir{Path: t.TempDir()}, &Result{})

	var protoErr *protocol.ProtocolError
	if !errors.As(err, &protoErr) {
		t.Fatalf("Expected ProtocolError, got %v", err)
	}
	if data.Len() == 0 {
		t.Error("Session kept reading after the protocol violation")
	}
	assertSingleAck(t, &ctrl)
}

// TestDrainControlStopsAtClose verifies the trailing drain surfaces every
// ERROR payload in order and terminates cleanly on CLOSE.
func TestDrainControlStopsAtClose(t *testing.T) {
	ctrl := dataStream(t,
		protocol.Packet{Tag: protocol.TagError, Payload: []byte("x")},
		protocol.Packet{Tag: protocol.TagError, Payload: []byte("y")},
		protocol.Packet{Tag: protocol.TagClose},
	)
	res := &Result{}

	if err := drainControl(ctrl, res); err != nil {
		t.Fatalf("drainControl failed: %v", err)
	}

	want := []string{"x", "y"}
	if len(res.Notices) != len(want) {
		t.Fatalf("Notices mismatch: got %v, want %v", res.Notices, want)
	}
	for i := range want {
		if res.Notices[i] != want[i] {
			t.Errorf("Notices[%d] mismatch: got %q, want %q", i, res.Notices[i], want[i])
		}
	}
	if ctrl.Len() != 0 {
		t.Errorf("Drain left %d bytes after CLOSE", ctrl.Len())
	}
}

// TestDrainControlTransportFault verifies that a control connection that
// dies before CLOSE surfaces as a TransportError.
func TestDrainControlTransportFault(t *testing.T) {
	ctrl := dataStream(t,
		protocol.Packet{Tag: protocol.TagError, Payload: []byte("x")},
	)
	res := &Result{}

	err := drainControl(ctrl, res)

	var transErr *protocol.TransportError
	if !errors.As(err, &transErr) {
		t.Fatalf("Expected TransportError, got %v", err)
	}
	if len(res.Notices) != 1 || res.Notices[0] != "x" {
		t.Errorf("Notices mismatch: got %v, want [x]", res.Notices)
	}
}
