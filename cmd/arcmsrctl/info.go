package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter"
)

type infoView struct {
	Backend          string `json:"backend" yaml:"backend"`
	Address          string `json:"address" yaml:"address"`
	VendorID         string `json:"vendor_id" yaml:"vendor_id"`
	DeviceID         string `json:"device_id" yaml:"device_id"`
	IRQ              int    `json:"irq" yaml:"irq"`
	Vendor           string `json:"vendor" yaml:"vendor"`
	Model            string `json:"model" yaml:"model"`
	FirmwareVersion  string `json:"firmware_version" yaml:"firmware_version"`
	FirmwareOutdated bool   `json:"firmware_outdated,omitempty" yaml:"firmware_outdated,omitempty"`
	MemoryMiB        uint32 `json:"memory_mib" yaml:"memory_mib"`
	Channels         uint32 `json:"channels" yaml:"channels"`
	QueueDepth       uint32 `json:"queue_depth" yaml:"queue_depth"`
	RequestSize      uint32 `json:"request_size" yaml:"request_size"`
	Tags             int    `json:"tags" yaml:"tags"`
	SlotSize         uint32 `json:"slot_size" yaml:"slot_size"`
}

func newInfoView(info adapter.Info) infoView {
	return infoView{
		Backend:          cfg.Backend,
		Address:          info.Bus.Address,
		VendorID:         fmt.Sprintf("%04x", info.Bus.VendorID),
		DeviceID:         fmt.Sprintf("%04x", info.Bus.DeviceID),
		IRQ:              info.Bus.IRQ,
		Vendor:           info.Vendor,
		Model:            info.Model,
		FirmwareVersion:  info.FirmwareVersion,
		FirmwareOutdated: adapter.FirmwareOutdated(info.FirmwareVersion),
		MemoryMiB:        info.InstalledMemory,
		Channels:         info.Channels,
		QueueDepth:       info.QueueDepth,
		RequestSize:      info.RequestSize,
		Tags:             info.Tags,
		SlotSize:         info.SlotSize,
	}
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show adapter identity and configuration",
	Long: `Initialize the adapter and print what its firmware reports: vendor,
model, firmware version, cache memory, queue depth and descriptor sizing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := openController(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer c.Close()

		v := newInfoView(c.Info())
		return render(cmd.OutOrStdout(), v, func(w *tabwriter.Writer) {
			fmt.Fprintf(w, "Backend:\t%s\n", v.Backend)
			fmt.Fprintf(w, "Address:\t%s\n", v.Address)
			fmt.Fprintf(w, "PCI ID:\t%s:%s\n", v.VendorID, v.DeviceID)
			fmt.Fprintf(w, "IRQ:\t%d\n", v.IRQ)
			fmt.Fprintf(w, "Vendor:\t%s\n", v.Vendor)
			fmt.Fprintf(w, "Model:\t%s\n", v.Model)
			if v.FirmwareOutdated {
				fmt.Fprintf(w, "Firmware:\t%s (outdated)\n", v.FirmwareVersion)
			} else {
				fmt.Fprintf(w, "Firmware:\t%s\n", v.FirmwareVersion)
			}
			fmt.Fprintf(w, "Memory:\t%d MiB\n", v.MemoryMiB)
			fmt.Fprintf(w, "Channels:\t%d\n", v.Channels)
			fmt.Fprintf(w, "Queue depth:\t%d (using %d)\n", v.QueueDepth, v.Tags)
			fmt.Fprintf(w, "Request size:\t%d (slot %d)\n", v.RequestSize, v.SlotSize)
		})
	},
}

func init() {
	rootCmd.AddCommand(infoCmd)
}
