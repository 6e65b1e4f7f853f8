package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/admin"
)

var identifyTimeout time.Duration

var identifyCmd = &cobra.Command{
	Use:   "identify",
	Short: "Ask the firmware to name itself",
	Long: `Open the management channel and send IDENTIFY. The firmware answers
with its product string.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var id string
		err := withSession(cmd.Context(), identifyTimeout, func(ctx context.Context, s *adapter.Session) error {
			var err error
			id, err = admin.NewClient(s).Identify(ctx)
			return err
		})
		if err != nil {
			return err
		}
		v := struct {
			Identify string `json:"identify" yaml:"identify"`
		}{id}
		return render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "%s\n", id)
		})
	},
}

func init() {
	rootCmd.AddCommand(identifyCmd)
	identifyCmd.Flags().DurationVar(&identifyTimeout, "timeout", 5*time.Second, "reply timeout")
}

// withSession starts the adapter, opens the management session and runs fn
// with a context bounded by timeout.
func withSession(ctx context.Context, timeout time.Duration, fn func(context.Context, *adapter.Session) error) error {
	c, err := openController(ctx, true)
	if err != nil {
		return err
	}
	defer c.Close()

	s, err := c.Open()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx, s)
}
