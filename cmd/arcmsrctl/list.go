package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/adapter/hal/linux"
	"github.com/ardnew/arcmsr/pkg/linux/pciid"
)

var (
	listSysfs  string
	listPCIIDs []string
)

type adapterView struct {
	Address  string `json:"address" yaml:"address"`
	VendorID string `json:"vendor_id" yaml:"vendor_id"`
	DeviceID string `json:"device_id" yaml:"device_id"`
	Name     string `json:"name" yaml:"name"`
	IRQ      int    `json:"irq" yaml:"irq"`
	Driver   string `json:"driver,omitempty" yaml:"driver,omitempty"`
	UIO      string `json:"uio,omitempty" yaml:"uio,omitempty"`
	BAR0     string `json:"bar0" yaml:"bar0"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List ArcMSR adapters on the PCI bus",
	Long: `Scan sysfs for Areca adapters this driver supports and show where
each one is bound. An adapter must be bound to a uio driver before the
linux backend can open it:

  echo 17d3 1680 > /sys/bus/pci/drivers/uio_pci_generic/new_id`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		devs, err := linux.Find(listSysfs)
		if err != nil {
			return err
		}

		db := pciid.New()
		if len(listPCIIDs) > 0 {
			db = pciid.NewWithPaths(listPCIIDs)
		}
		db.Load()

		views := make([]adapterView, 0, len(devs))
		for _, d := range devs {
			views = append(views, adapterView{
				Address:  d.Address,
				VendorID: fmt.Sprintf("%04x", d.VendorID),
				DeviceID: fmt.Sprintf("%04x", d.DeviceID),
				Name:     db.Describe(d.VendorID, d.DeviceID),
				IRQ:      d.IRQ,
				Driver:   d.Driver,
				UIO:      d.UIO,
				BAR0:     fmt.Sprintf("0x%x", d.BAR0),
			})
		}

		return render(cmd.OutOrStdout(), views, func(w *tabwriter.Writer) {
			if len(views) == 0 {
				fmt.Fprintln(w, "No supported adapters found.")
				return
			}
			fmt.Fprintf(w, "ADDRESS\tID\tNAME\tIRQ\tDRIVER\tUIO\n")
			fmt.Fprintf(w, "-------\t--\t----\t---\t------\t---\n")
			for _, v := range views {
				uio := v.UIO
				if uio == "" {
					uio = "-"
				}
				fmt.Fprintf(w, "%s\t%s:%s\t%s\t%d\t%s\t%s\n",
					v.Address, v.VendorID, v.DeviceID, v.Name, v.IRQ, v.Driver, uio)
			}
		})
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVar(&listSysfs, "sysfs", linux.SysfsPCIPath, "sysfs PCI devices directory")
	listCmd.Flags().StringSliceVar(&listPCIIDs, "pci-ids", nil, "pci.ids database files (default: system locations)")
}
