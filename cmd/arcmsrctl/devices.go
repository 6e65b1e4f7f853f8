package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter"
	"github.com/ardnew/arcmsr/scsi"
)

var (
	devicesSettle  time.Duration
	devicesTimeout time.Duration
	devicesProbe   bool
)

type deviceView struct {
	Target     int    `json:"target" yaml:"target"`
	LUN        int    `json:"lun" yaml:"lun"`
	SCSITarget int    `json:"scsi_target" yaml:"scsi_target"`
	Vendor     string `json:"vendor,omitempty" yaml:"vendor,omitempty"`
	Product    string `json:"product,omitempty" yaml:"product,omitempty"`
	Revision   string `json:"revision,omitempty" yaml:"revision,omitempty"`
	Blocks     uint64 `json:"blocks,omitempty" yaml:"blocks,omitempty"`
	BlockSize  uint32 `json:"block_size,omitempty" yaml:"block_size,omitempty"`
	Error      string `json:"error,omitempty" yaml:"error,omitempty"`
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Show the units the adapter exports",
	Long: `Start the adapter, wait for the first device-map poll and list every
target/lun the firmware reports present. Each unit is probed with INQUIRY
and READ CAPACITY unless --probe=false.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := openController(ctx, true)
		if err != nil {
			return err
		}
		defer c.Close()

		if err := settle(ctx, c, devicesSettle); err != nil {
			return err
		}

		var views []deviceView
		for _, d := range c.Devices() {
			v := deviceView{Target: d.Target, LUN: d.LUN, SCSITarget: d.SCSITarget()}
			if devicesProbe {
				if err := probe(ctx, c, &v); err != nil {
					v.Error = err.Error()
				}
			}
			views = append(views, v)
		}

		return render(cmd.OutOrStdout(), views, func(w *tabwriter.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, "No units present.")
				return
			}
			fmt.Fprintf(w, "TARGET\tLUN\tVENDOR\tPRODUCT\tREV\tCAPACITY\n")
			fmt.Fprintf(w, "------\t---\t------\t-------\t---\t--------\n")
			for _, v := range views {
				capacity := formatBytes(v.Blocks * uint64(v.BlockSize))
				if v.Error != "" {
					capacity = v.Error
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\n",
					v.Target, v.LUN, v.Vendor, v.Product, v.Revision, capacity)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(devicesCmd)

	devicesCmd.Flags().DurationVar(&devicesSettle, "settle", 250*time.Millisecond, "time to wait for the first device-map poll")
	devicesCmd.Flags().DurationVar(&devicesTimeout, "timeout", 5*time.Second, "per-command timeout when probing units")
	devicesCmd.Flags().BoolVar(&devicesProbe, "probe", true, "probe each unit with INQUIRY and READ CAPACITY")
}

// settle waits out d, which must cover at least one device-map poll.
func settle(ctx context.Context, c *controller, d time.Duration) error {
	deadline := time.Now().Add(d)
	for c.Stats().ConfigPolls == 0 {
		if time.Now().After(deadline) {
			return fmt.Errorf("no device-map poll within %v", d)
		}
		if err := sleepCtx(ctx, time.Millisecond); err != nil {
			return err
		}
	}
	return sleepCtx(ctx, time.Until(deadline))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// probe fills v from INQUIRY and READ CAPACITY (10).
func probe(ctx context.Context, c *controller, v *deviceView) error {
	buf, err := c.hal.AllocDMA(scsi.InquiryStandardSize, 8)
	if err != nil {
		return err
	}
	defer buf.Free()

	inq := &adapter.Task{
		Target:    v.Target,
		LUN:       v.LUN,
		Direction: adapter.DirIn,
		CDB:       scsi.Inquiry(scsi.InquiryStandardSize),
		Buffer:    buf,
		Length:    scsi.InquiryStandardSize,
		Timeout:   devicesTimeout,
	}
	if err := c.Execute(ctx, inq); err != nil {
		return fmt.Errorf("inquiry: %w", err)
	}
	var data scsi.InquiryData
	if scsi.ParseInquiry(buf.Bytes()[:inq.Realized], &data) {
		v.Vendor, v.Product, v.Revision = data.Vendor, data.Product, data.Revision
	}

	rc := &adapter.Task{
		Target:    v.Target,
		LUN:       v.LUN,
		Direction: adapter.DirIn,
		CDB:       scsi.ReadCapacity10(),
		Buffer:    buf,
		Length:    8,
		Timeout:   devicesTimeout,
	}
	if err := c.Execute(ctx, rc); err != nil {
		return fmt.Errorf("read capacity: %w", err)
	}
	var capacity scsi.Capacity
	if scsi.ParseCapacity10(buf.Bytes()[:rc.Realized], &capacity) {
		v.Blocks, v.BlockSize = capacity.Blocks(), capacity.BlockLength
	}
	return nil
}
