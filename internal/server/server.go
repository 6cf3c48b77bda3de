// Package server implements the peer side of the transfer protocol. It
// serves one client at a time: the negotiation arrives on the control
// connection, then the server dials back to the client's announced data
// port and streams either a directory listing or a file.
package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/rlind/tinyft/internal/protocol"
	"github.com/rlind/tinyft/internal/util"
)

// Tuning constants.
const (
	chunkSize      = 512                    // payload bytes per FILE packet
	dialAttempts   = 12                     // dial-back attempts to the client's data port
	dialRetryDelay = 250 * time.Millisecond // pause between dial-back attempts
)

// Server answers transfer requests out of a single directory.
type Server struct {
	Root string // directory to list and serve files from
}

// ListenAndServe listens on addr and serves clients until the listener
// fails.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return &protocol.TransportError{Op: "listen", Err: err}
	}
	defer ln.Close()
	util.LogInfo("server open on %s", ln.Addr())
	return s.Serve(ln)
}

// Serve accepts control connections from ln and handles them one at a
// time, matching the strictly sequential protocol. It returns the first
// accept error.
func (s *Server) Serve(ln net.Listener) error {
	for {
		ctrl, err := ln.Accept()
		if err != nil {
			return err
		}
		s.handle(ctrl)
	}
}

// handle runs one complete session over an accepted control connection:
// receive the request, dial back for the data connection, stream the
// payload, then block for the client's ACK before tearing down.
func (s *Server) handle(ctrl net.Conn) {
	defer ctrl.Close()

	host, _, err := net.SplitHostPort(ctrl.RemoteAddr().String())
	if err != nil {
		util.LogError("client address %q: %v", ctrl.RemoteAddr(), err)
		return
	}
	util.LogInfo("control connection established with %q", host)

	cmd, dataPort, filename, err := receiveRequest(ctrl)
	if err != nil {
		util.LogWarning("negotiation with %q failed: %v", host, err)
		return
	}

	data, err := dialBack(host, dataPort)
	if err != nil {
		util.LogError("%v", err)
		return
	}
	defer data.Close()
	util.LogInfo("data connection established with %q", host)

	if err := s.sendPayload(ctrl, data, cmd, filename); err != nil {
		util.LogWarning("session with %q failed: %v", host, err)
		return
	}

	// The client acknowledges receipt before the data socket goes away.
	if _, err := protocol.ReadPacket(ctrl); err != nil {
		util.LogWarning("waiting for ack from %q: %v", host, err)
	}
	util.LogInfo("data connection with %q closed", host)
}

// receiveRequest consumes the data-port announcement and the command
// packet, answering with OKAY or ERROR. A rejected command is reported to
// the client and returned as an error so the session stops before any
// data connection is attempted.
func receiveRequest(ctrl net.Conn) (cmd string, dataPort int, filename string, err error) {
	pkt, err := protocol.ReadPacket(ctrl)
	if err != nil {
		return "", 0, "", err
	}
	if pkt.Tag != protocol.TagDataPort {
		return "", 0, "", &protocol.ProtocolError{Reason: fmt.Sprintf("expected %s, got %q", protocol.TagDataPort, pkt.Tag)}
	}
	dataPort, err = strconv.Atoi(string(pkt.Payload))
	if err != nil {
		return "", 0, "", &protocol.ProtocolError{Reason: fmt.Sprintf("data port %q is not a number", pkt.Payload)}
	}

	pkt, err = protocol.ReadPacket(ctrl)
	if err != nil {
		return "", 0, "", err
	}
	cmd, filename = pkt.Tag, string(pkt.Payload)

	if cmd != protocol.TagList && cmd != protocol.TagGet {
		if werr := protocol.WritePacket(ctrl, protocol.TagError, []byte("Command must be either -l or -g")); werr != nil {
			return "", 0, "", werr
		}
		return "", 0, "", &protocol.ProtocolError{Reason: fmt.Sprintf("unknown command tag %q", cmd)}
	}

	if err := protocol.WritePacket(ctrl, protocol.TagOkay, nil); err != nil {
		return "", 0, "", err
	}
	return cmd, dataPort, filename, nil
}

// dialBack connects to the client's announced data port. The client only
// starts listening after it reads the negotiation verdict, so early
// attempts may be refused; retry a bounded number of times.
func dialBack(host string, port int) (net.Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	var err error
	for i := 0; i < dialAttempts; i++ {
		var conn net.Conn
		conn, err = net.Dial("tcp", addr)
		if err == nil {
			return conn, nil
		}
		time.Sleep(dialRetryDelay)
	}
	return nil, &protocol.TransportError{Op: "dial data port " + addr, Err: err}
}

// sendPayload streams the requested payload over the data connection.
// DONE terminates the data stream even after a reported error, and CLOSE
// on the control connection releases the client's trailing drain loop.
func (s *Server) sendPayload(ctrl, data net.Conn, cmd, filename string) error {
	var err error
	switch cmd {
	case protocol.TagList:
		err = s.sendListing(data)
	case protocol.TagGet:
		err = s.sendFile(ctrl, data, filename)
	}

	if doneErr := protocol.WritePacket(data, protocol.TagDone, nil); err == nil {
		err = doneErr
	}
	if closeErr := protocol.WritePacket(ctrl, protocol.TagClose, nil); err == nil {
		err = closeErr
	}
	return err
}

// sendListing transmits each filename of the served directory in its own
// FNAME packet.
func (s *Server) sendListing(data net.Conn) error {
	names, err := listFiles(s.Root)
	if err != nil {
		return err
	}
	util.LogDebug("transmitting listing of %d files", len(names))
	for _, name := range names {
		if err := protocol.WritePacket(data, protocol.TagFilename, []byte(name)); err != nil {
			return err
		}
	}
	return nil
}

// sendFile announces the filename in a FILE packet and then streams the
// content in fixed-size FILE chunks. A file that cannot be opened is
// reported on the control connection — the data connection is already up
// at that point, so the complaint reaches the client through its trailing
// drain.
func (s *Server) sendFile(ctrl, data net.Conn, name string) error {
	name = filepath.Base(name)
	f, err := os.Open(filepath.Join(s.Root, name))
	if err != nil {
		msg := "Unable to open file"
		if errors.Is(err, os.ErrNotExist) {
			msg = "File not found"
		}
		util.LogWarning("get %q: %v", name, err)
		return protocol.WritePacket(ctrl, protocol.TagError, []byte(msg))
	}
	defer f.Close()

	if err := protocol.WritePacket(data, protocol.TagFile, []byte(name)); err != nil {
		return err
	}

	var tr util.Transfer
	buf := make([]byte, chunkSize)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			if werr := protocol.WritePacket(data, protocol.TagFile, buf[:n]); werr != nil {
				return werr
			}
			tr.Add(n)
		}
		if err == io.EOF {
			util.LogInfo("transmitted %s (%s)", name, tr.Summary())
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %q: %w", name, err)
		}
	}
}

// listFiles returns the names of the regular entries of dir;
// subdirectories are skipped, matching the listing the protocol promises.
func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
