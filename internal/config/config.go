// Package config holds the validated session parameters.
package config

import (
	"fmt"
	"net"
	"strconv"
)

// Command selects what the client asks the server for.
type Command string

const (
	CommandList Command = "LIST" // request a directory listing
	CommandGet  Command = "GET"  // request a single file
)

// Valid port range for both the server port and the data port.
const (
	MinPort = 1024
	MaxPort = 65535
)

// Params stores the parameters of one session. A Params value is built
// once at the CLI boundary, validated, and then threaded by value through
// every component; nothing mutates it.
type Params struct {
	ServerHost string
	ServerPort int
	Command    Command
	Filename   string // required when Command is CommandGet
	DataPort   int    // local port the client listens on for the data connection
}

// Validate checks the invariants the session relies on.
func (p Params) Validate() error {
	if p.ServerHost == "" {
		return fmt.Errorf("server host must not be empty")
	}
	if p.ServerPort < MinPort || p.ServerPort > MaxPort {
		return fmt.Errorf("server port must be in the range [%d, %d]", MinPort, MaxPort)
	}
	if p.DataPort < MinPort || p.DataPort > MaxPort {
		return fmt.Errorf("data port must be in the range [%d, %d]", MinPort, MaxPort)
	}
	if p.DataPort == p.ServerPort {
		return fmt.Errorf("server port and data port cannot match")
	}
	switch p.Command {
	case CommandList:
	case CommandGet:
		if p.Filename == "" {
			return fmt.Errorf("a filename is required to get a file")
		}
	default:
		return fmt.Errorf("command must be either %q or %q", CommandList, CommandGet)
	}
	return nil
}

// ServerAddr returns the control connection dial address.
func (p Params) ServerAddr() string {
	return net.JoinHostPort(p.ServerHost, strconv.Itoa(p.ServerPort))
}
