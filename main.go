// wilma - chat with Anthropic's Claude models via Amazon Bedrock.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrgrumpyowl/wilma/internal/cli"
)

func main() {
	cmd, args, err := cli.Parse(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "wilma:", err)
		os.Exit(2)
	}

	switch cmd {
	case cli.CmdVersion:
		fmt.Println(cli.VersionString())

	case cli.CmdHelp:
		fmt.Println(cli.Usage())

	case cli.CmdChat:
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := cli.RunChat(ctx, args); err != nil {
			fmt.Fprintln(os.Stderr, "wilma:", err)
			os.Exit(1)
		}
	}
}
