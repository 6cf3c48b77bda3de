package session

import (
	"io"
	"strconv"

	"github.com/rlind/tinyft/internal/config"
	"github.com/rlind/tinyft/internal/protocol"
	"github.com/rlind/tinyft/internal/util"
)

// negotiate runs the control session: announce the data port, send the
// command, and read the server's single synchronous verdict. The state
// machine is INIT → SENT_DPORT → SENT_COMMAND → {OK | FAILED}; any
// transport fault along the way is fatal and ends the run.
func negotiate(ctrl io.ReadWriter, p config.Params) error {
	util.LogDebug("announcing data port %d", p.DataPort)
	if err := protocol.WritePacket(ctrl, protocol.TagDataPort, []byte(strconv.Itoa(p.DataPort))); err != nil {
		return err
	}

	tag := protocol.TagList
	var payload []byte
	if p.Command == config.CommandGet {
		tag = protocol.TagGet
		payload = []byte(p.Filename)
	}
	util.LogDebug("sending %s command", tag)
	if err := protocol.WritePacket(ctrl, tag, payload); err != nil {
		return err
	}

	resp, err := protocol.ReadPacket(ctrl)
	if err != nil {
		return err
	}
	if resp.Tag == protocol.TagError {
		return &ServerError{Msg: string(resp.Payload)}
	}

	// Any other tag is the go-ahead. The companion server sends OKAY, but
	// the tag is deliberately not asserted so older servers still work.
	return nil
}
