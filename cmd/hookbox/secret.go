package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hookbox/internal/security"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a random signing secret",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret, err := security.GenerateSecret()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), secret)
		return nil
	},
}
