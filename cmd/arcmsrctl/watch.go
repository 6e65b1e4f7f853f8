package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ardnew/arcmsr/adapter"
)

var watchDuration time.Duration

type eventView struct {
	Time       time.Time `json:"time" yaml:"time"`
	Event      string    `json:"event" yaml:"event"`
	Target     int       `json:"target" yaml:"target"`
	LUN        int       `json:"lun" yaml:"lun"`
	SCSITarget int       `json:"scsi_target" yaml:"scsi_target"`
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow unit arrival and departure",
	Long: `Start the adapter and print a line for every unit the firmware adds
or removes, until interrupted or --duration elapses. The device map is
polled every scan_interval.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if watchDuration > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, watchDuration)
			defer cancel()
		}

		events := make(chan adapter.DeviceEvent, adapter.MaxTargets*adapter.MaxLUNs)
		c, err := openController(ctx, false)
		if err != nil {
			return err
		}
		defer c.Close()
		c.SetOnDeviceEvent(func(e adapter.DeviceEvent) {
			select {
			case events <- e:
			default:
			}
		})
		if err := c.Start(ctx); err != nil {
			return err
		}

		emit := newEventWriter(cmd.OutOrStdout())
		for {
			select {
			case <-ctx.Done():
				return nil
			case e := <-events:
				v := eventView{
					Time:       time.Now(),
					Event:      e.Kind.String(),
					Target:     e.Target,
					LUN:        e.LUN,
					SCSITarget: e.SCSITarget(),
				}
				if err := emit(v); err != nil {
					return err
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().DurationVar(&watchDuration, "duration", 0, "stop after this long (0 runs until interrupted)")
}

// newEventWriter streams events one record at a time in the selected format.
func newEventWriter(w io.Writer) func(eventView) error {
	switch outputFormat {
	case formatJSON:
		enc := json.NewEncoder(w)
		return func(v eventView) error { return enc.Encode(v) }
	case formatYAML:
		return func(v eventView) error {
			out, err := yaml.Marshal(v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "---\n%s", out)
			return err
		}
	default:
		return func(v eventView) error {
			_, err := fmt.Fprintf(w, "%s  %-8s  target %2d  lun %d\n",
				v.Time.Format(time.TimeOnly), v.Event, v.Target, v.LUN)
			return err
		}
	}
}
