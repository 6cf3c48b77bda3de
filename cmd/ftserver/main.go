// Ftserver — companion server entry point.
//
// It listens for ftclient control connections on the given port and serves
// one client at a time: a directory listing or a single file, streamed
// over a data connection the server dials back to the client.
//
//	ftserver [-debug] [-root <dir>] <server-port>
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/rlind/tinyft/internal/config"
	"github.com/rlind/tinyft/internal/server"
	"github.com/rlind/tinyft/internal/util"
)

func main() {
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	root := flag.String("root", ".", "Directory to list and serve files from")
	flag.Usage = usage
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	if flag.NArg() != 1 {
		usage()
		os.Exit(1)
	}

	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		util.LogError("port number must be an integer")
		os.Exit(1)
	}
	if port < config.MinPort || port > config.MaxPort {
		util.LogError("port number must be in the range [%d, %d]", config.MinPort, config.MaxPort)
		os.Exit(1)
	}

	srv := &server.Server{Root: *root}
	if err := srv.ListenAndServe(fmt.Sprintf(":%d", port)); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: ftserver [-debug] [-root <dir>] <server-port>")
	flag.PrintDefaults()
}
