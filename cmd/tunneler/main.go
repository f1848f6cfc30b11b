// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

// Command tunneler is the reverse TCP tunnel's single binary: `client`,
// `server`, and `key-gen` subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "tunneler",
		Short: "Reverse TCP tunnel client/server",
	}
	root.AddCommand(newClientCommand())
	root.AddCommand(newServerCommand())
	root.AddCommand(newKeyGenCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
