package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/adapter/admin"
)

var (
	sendTimeout time.Duration
	sendRaw     bool
)

type replyView struct {
	Command string `json:"command,omitempty" yaml:"command,omitempty"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	Length  int    `json:"length" yaml:"length"`
	Data    string `json:"data,omitempty" yaml:"data,omitempty"`
}

var sendCmd = &cobra.Command{
	Use:   "send <command|hex> [hex-data]",
	Short: "Issue a management command",
	Long: `Frame a management command, send it over the message channel and
print the firmware's reply.

The command is a mnemonic such as "identify", "get-info-system" or
"no-operation". Optional data follows as hex. With --raw the first argument
is sent unframed as hex bytes and whatever comes back within --timeout is
printed.

Examples:
  arcmsrctl send get-info-system
  arcmsrctl send check-password 0431323334
  arcmsrctl send --raw 5e016101001314 --timeout 1s`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if sendRaw {
			if len(args) != 1 {
				return fmt.Errorf("--raw takes a single hex argument")
			}
			return runSendRaw(cmd, args[0])
		}
		code, ok := admin.ParseCommand(args[0])
		if !ok {
			return fmt.Errorf("unknown command %q", args[0])
		}
		var data []byte
		if len(args) == 2 {
			var err error
			if data, err = decodeHex(args[1]); err != nil {
				return err
			}
		}

		var r admin.Response
		err := withSession(cmd.Context(), sendTimeout, func(ctx context.Context, s *adapter.Session) error {
			var err error
			r, err = admin.NewClient(s).Do(ctx, code, data)
			return err
		})
		if err != nil {
			return err
		}

		v := replyView{Command: code.String(), Length: len(r.Body)}
		if r.IsStatus() {
			v.Status = r.Status().String()
		} else {
			v.Status = admin.StatusOK.String()
			v.Data = hex.EncodeToString(r.Body)
		}
		if err := render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Command:\t%s\n", v.Command)
			fmt.Fprintf(w, "Status:\t%s\n", v.Status)
			if !r.IsStatus() {
				fmt.Fprintf(w, "Length:\t%d\n", v.Length)
				w.Flush()
				fmt.Fprint(w, hex.Dump(r.Body))
			}
		}); err != nil {
			return err
		}
		return r.Err()
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 5*time.Second, "reply timeout")
	sendCmd.Flags().BoolVar(&sendRaw, "raw", false, "send hex bytes unframed")
}

func runSendRaw(cmd *cobra.Command, arg string) error {
	p, err := decodeHex(arg)
	if err != nil {
		return err
	}
	var got []byte
	err = withSession(cmd.Context(), sendTimeout, func(ctx context.Context, s *adapter.Session) error {
		if err := s.Send(ctx, p); err != nil {
			return err
		}
		got, err = drain(ctx, s, sendTimeout)
		return err
	})
	if err != nil {
		return err
	}
	return renderBytes(cmd, got)
}

// drain reads from s until nothing arrives for one poll or ctx is done.
func drain(ctx context.Context, s *adapter.Session, timeout time.Duration) ([]byte, error) {
	poll := min(timeout, 100*time.Millisecond)
	var out []byte
	buf := make([]byte, 4096)
	for ctx.Err() == nil {
		n, err := s.Recv(buf, poll)
		if err != nil {
			return out, err
		}
		if n == 0 && len(out) > 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	return out, nil
}

func renderBytes(cmd *cobra.Command, p []byte) error {
	v := replyView{Length: len(p), Data: hex.EncodeToString(p)}
	return render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
		if len(p) == 0 {
			fmt.Fprintln(w, "No data.")
			return
		}
		fmt.Fprint(w, hex.Dump(p))
	})
}

func decodeHex(s string) ([]byte, error) {
	s = strings.NewReplacer(" ", "", ":", "", "0x", "").Replace(s)
	p, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("bad hex data: %w", err)
	}
	return p, nil
}
