package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter"
)

var (
	recvTimeout time.Duration
	recvClear   bool
)

var recvCmd = &cobra.Command{
	Use:   "recv",
	Short: "Read pending bytes from the message channel",
	Long: `Open the management channel and print whatever the firmware sends
within --timeout. With --clear, data already buffered is discarded first
and a stalled adapter is released.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var got []byte
		err := withSession(cmd.Context(), recvTimeout, func(ctx context.Context, s *adapter.Session) error {
			if recvClear {
				if err := s.ClearOutbound(); err != nil {
					return err
				}
			}
			var err error
			got, err = drain(ctx, s, recvTimeout)
			return err
		})
		if err != nil {
			return err
		}
		return renderBytes(cmd, got)
	},
}

func init() {
	rootCmd.AddCommand(recvCmd)
	recvCmd.Flags().DurationVar(&recvTimeout, "timeout", time.Second, "how long to wait for data")
	recvCmd.Flags().BoolVar(&recvClear, "clear", false, "discard buffered data first")
}
