package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Populated with -ldflags "-X main.version=..." during release builds
var version = "latest"

func NewVersionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}
	return cmd
}
