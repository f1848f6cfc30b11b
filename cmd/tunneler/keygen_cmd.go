// Copyright (c) 2026 Lol3rrr. All rights reserved.
// Use of this source code is governed by a license that can be found in the LICENSE file.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Lol3rrr/tunneler/internal/config"
	"github.com/Lol3rrr/tunneler/internal/keyfile"
)

func newKeyGenCommand() *cobra.Command {
	var keyPath string

	cmd := &cobra.Command{
		Use:   "key-gen",
		Short: "Generate a new pre-shared key file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyPath == "" {
				keyPath = config.DefaultKeyPath()
			}
			secret, err := keyfile.Generate(keyfile.DefaultSize)
			if err != nil {
				return fmt.Errorf("key-gen: %w", err)
			}
			if err := keyfile.Save(keyPath, secret); err != nil {
				return fmt.Errorf("key-gen: %w", err)
			}
			fmt.Printf("wrote %d-byte key to %s\n", len(secret), keyPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&keyPath, "key", "k", "", "path to save the generated key file (default $HOME/.tunneler/key)")
	return cmd
}
