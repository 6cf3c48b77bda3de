// Package session drives one file-transfer session: a long-lived control
// connection for negotiation and deferred errors, and a short-lived data
// connection for the payload. The connection roles are reversed for the
// data channel — the client listens on its announced data port and the
// server dials back. Everything is synchronous and blocking; there are no
// timeouts and no retries, and any fault ends the run.
package session

import (
	"fmt"
	"io"
	"net"

	"github.com/rlind/tinyft/internal/config"
	"github.com/rlind/tinyft/internal/protocol"
	"github.com/rlind/tinyft/internal/sink"
	"github.com/rlind/tinyft/internal/util"
)

// Result collects what a session produced.
type Result struct {
	Listing []string // filenames received, for a LIST session
	SavedAs string   // filename written to the sink, for a GET session
	Notices []string // trailing ERROR payloads drained from the control connection
}

// Run executes one full session:
//  1. Dial the control connection.
//  2. Negotiate: announce the data port, send the command, read the verdict.
//  3. On success, bind the data port and accept the server's connection.
//  4. Consume the payload (listing or file), then ACK on the control connection.
//  5. Drain trailing ERROR notifications until CLOSE.
//  6. Close the control connection.
//
// A negotiation failure skips straight past the data phase: no data-port
// bind, listen, or accept is attempted. The control connection is closed
// on every path.
func Run(p config.Params, snk sink.Sink) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	ctrl, err := net.Dial("tcp", p.ServerAddr())
	if err != nil {
		return nil, &protocol.TransportError{Op: "connect control", Err: err}
	}
	defer ctrl.Close()
	util.LogInfo("control connection established with %s", p.ServerAddr())

	if err := negotiate(ctrl, p); err != nil {
		return nil, err
	}

	data, err := acceptData(p.DataPort)
	if err != nil {
		return nil, err
	}
	defer data.Close()
	util.LogInfo("data connection established on port %d", p.DataPort)

	res := &Result{}
	payloadErr := receivePayload(data, ctrl, snk, res)

	// The server may still report deferred errors (a failed GET surfaces
	// here, after the data phase) before signalling CLOSE.
	drainErr := drainControl(ctrl, res)

	if payloadErr != nil {
		return res, payloadErr
	}
	return res, drainErr
}

// acceptData binds the local data port, accepts the single inbound
// connection from the server, and closes the listener. The accepting role
// is the client's by protocol design.
func acceptData(port int) (net.Conn, error) {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return nil, &protocol.TransportError{Op: "listen on data port", Err: err}
	}
	defer ln.Close()

	conn, err := ln.Accept()
	if err != nil {
		return nil, &protocol.TransportError{Op: "accept data connection", Err: err}
	}
	return conn, nil
}

// drainControl collects deferred ERROR notifications from the control
// connection until the server signals CLOSE. Other tags are ignored.
func drainControl(ctrl io.Reader, res *Result) error {
	for {
		pkt, err := protocol.ReadPacket(ctrl)
		if err != nil {
			return err
		}
		switch pkt.Tag {
		case protocol.TagError:
			msg := string(pkt.Payload)
			res.Notices = append(res.Notices, msg)
			util.LogWarning("server: %s", msg)
		case protocol.TagClose:
			return nil
		}
	}
}
