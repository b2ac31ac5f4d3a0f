package main

import (
	"fmt"
	"os"

	cli "github.com/spf13/pflag"

	"deskpilot/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "s", "/tmp/deskpilot.sock", "Control socket path")
	cli.Parse()

	cmd := "trigger"
	if args := cli.Args(); len(args) > 0 {
		cmd = args[0]
	}

	reply, err := ipc.Send(*socket, cmd)
	if err != nil {
		fmt.Println("deskpilot not running:", err)
		os.Exit(1)
	}

	if reply.Message != "" {
		fmt.Println(reply.Message)
	}
	if !reply.OK {
		os.Exit(1)
	}
}
