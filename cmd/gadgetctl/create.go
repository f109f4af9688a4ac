package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/agentic-research/gadgetfs/gadget"
)

var createFlags struct {
	vendorID     uint16
	productID    uint16
	serial       string
	manufacturer string
	product      string
}

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a gadget",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openState(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		serial := createFlags.serial
		if serial == "" {
			serial = uuid.NewString()
		}

		g, err := s.CreateGadget(args[0],
			&gadget.GadgetAttrs{
				IDVendor:  createFlags.vendorID,
				IDProduct: createFlags.productID,
			},
			&gadget.GadgetStrs{
				SerialNumber: serial,
				Manufacturer: createFlags.manufacturer,
				Product:      createFlags.product,
			})
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created gadget %s\n", g.Name())
		return nil
	},
}

func init() {
	createCmd.Flags().Uint16Var(&createFlags.vendorID, "vendor-id", 0x1d6b, "USB vendor ID")
	createCmd.Flags().Uint16Var(&createFlags.productID, "product-id", 0x0104, "USB product ID")
	createCmd.Flags().StringVar(&createFlags.serial, "serial", "", "serial number (random when empty)")
	createCmd.Flags().StringVar(&createFlags.manufacturer, "manufacturer", "", "manufacturer string")
	createCmd.Flags().StringVar(&createFlags.product, "product", "", "product string")
	rootCmd.AddCommand(createCmd)
}
