package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flushCmd = &cobra.Command{
	Use:   "flush",
	Short: "Flush the adapter cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openController(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := c.FlushCache(cmd.Context()); err != nil {
			return fmt.Errorf("flush cache: %w", err)
		}
		if outputFormat != formatTable {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cache flushed on %s.\n", c.Info().Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(flushCmd)
}
