// Ftclient — CLI entry point for the transfer client.
//
// It connects to a companion ftserver, requests either a directory listing
// (-l) or a one-way file transfer (-g <filename>), and receives the
// payload over a separate data connection that the server dials back to
// the given data port.
//
// It can be launched with positional arguments or, with none, through
// interactive prompts:
//
//	ftclient [-debug] <server-host> <server-port> -l <data-port>
//	ftclient [-debug] <server-host> <server-port> -g <filename> <data-port>
//
// All socket operations block without timeouts; an unresponsive server
// hangs the client until it is interrupted.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/rlind/tinyft/internal/config"
	"github.com/rlind/tinyft/internal/session"
	"github.com/rlind/tinyft/internal/sink"
	"github.com/rlind/tinyft/internal/util"
)

var version = "dev"

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	destDir := flag.String("dest", ".", "Directory in which to store received files")
	flag.Usage = usage
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	var p config.Params
	if flag.NArg() == 0 {
		// No positional arguments → interactive mode.
		pterm.Info.Println(fmt.Sprintf("ftclient — v%s", version))
		pterm.Println()
		p = askParams()
	} else {
		var err error
		p, err = parseArgs(flag.Args())
		if err != nil {
			util.LogError("%v", err)
			usage()
			os.Exit(1)
		}
	}

	if err := p.Validate(); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if _, err := session.Run(p, sink.Dir{Path: *destDir}); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

// parseArgs builds session parameters from the positional argument forms
// documented in usage. Range and consistency checks live in
// config.Params.Validate.
func parseArgs(args []string) (config.Params, error) {
	var p config.Params

	if len(args) != 4 && len(args) != 5 {
		return p, fmt.Errorf("wrong number of arguments")
	}

	p.ServerHost = args[0]

	serverPort, err := parsePort(args[1])
	if err != nil {
		return p, fmt.Errorf("server port %v", err)
	}
	p.ServerPort = serverPort

	switch args[2] {
	case "-l":
		if len(args) != 4 {
			return p, fmt.Errorf("-l takes no filename")
		}
		p.Command = config.CommandList
	case "-g":
		if len(args) != 5 {
			return p, fmt.Errorf("-g requires a filename")
		}
		p.Command = config.CommandGet
		p.Filename = args[3]
	default:
		return p, fmt.Errorf("command must be either -l or -g")
	}

	dataPort, err := parsePort(args[len(args)-1])
	if err != nil {
		return p, fmt.Errorf("data port %v", err)
	}
	p.DataPort = dataPort

	return p, nil
}

// parsePort converts a decimal port argument; range checks happen later in
// Params.Validate.
func parsePort(raw string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("must be an integer")
	}
	return port, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ftclient [-debug] [-dest <dir>] <server-host> <server-port> -l|-g [<filename>] <data-port>")
	flag.PrintDefaults()
}

// ---------------------------------------------------------------------------
// Interactive mode
// ---------------------------------------------------------------------------

// askParams gathers the session parameters through interactive prompts.
func askParams() config.Params {
	var p config.Params

	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{"List — Show the server's directory", "Get  — Download one file"}).
		WithDefaultText("Select a command").
		Show()
	pterm.Println()

	p.ServerHost = askText("Server host")
	p.ServerPort = askPort("Server port (1024 ~ 65535)")

	if strings.HasPrefix(choice, "Get") {
		p.Command = config.CommandGet
		p.Filename = askText("Filename to download")
	} else {
		p.Command = config.CommandList
	}

	p.DataPort = askPort("Data port to listen on (1024 ~ 65535)")
	return p
}

// askText prompts until a non-empty line is entered.
func askText(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		if text := strings.TrimSpace(raw); text != "" {
			pterm.Println()
			return text
		}

		util.LogWarning("input must not be empty")
		pterm.Println()
	}
}

// askPort prompts the user for a port number until a valid one is entered.
func askPort(prompt string) int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		port, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && port >= config.MinPort && port <= config.MaxPort {
			pterm.Println()
			return port
		}

		util.LogWarning("invalid port number: must be %d ~ %d", config.MinPort, config.MaxPort)
		pterm.Println()
	}
}
