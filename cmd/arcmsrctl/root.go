package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ardnew/arcmsr/internal/config"
)

var (
	// Global flags
	configFile   string
	verbose      bool
	outputFormat string

	// Loaded by the root pre-run hook.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "arcmsrctl",
	Short: "Inspect and manage Areca ArcMSR RAID adapters",
	Long: `arcmsrctl drives an Areca ArcMSR RAID adapter from user space.

It runs against a bound PCI adapter (backend "linux", requires the adapter
to be bound to uio_pci_generic) or against the built-in firmware simulator
(backend "sim", the default).

Commands:
  list        List ArcMSR adapters on the PCI bus
  info        Show adapter identity and configuration
  devices     Show the units the adapter exports
  identify    Ask the firmware to name itself
  send        Issue a management command
  recv        Read pending bytes from the message channel
  flush       Flush the adapter cache
  watch       Follow unit arrival and departure`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := checkOutputFormat(outputFormat); err != nil {
			return err
		}
		c, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := c.ApplyLogging(verbose); err != nil {
			return err
		}
		cfg = c
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default: arcmsr.yaml in ., $HOME/.arcmsr, /etc/arcmsr)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")
}
