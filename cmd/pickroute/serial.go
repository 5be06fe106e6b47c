package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nerrad567/pickroute/internal/serial"
)

func newSerialCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serial",
		Short: "Inspect the serial device link",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "ports",
		Short: "List serial ports present on this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ports, err := serial.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no serial ports found")
				return nil
			}
			for _, p := range ports {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	})

	return cmd
}
