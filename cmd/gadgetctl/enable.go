package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var enableCmd = &cobra.Command{
	Use:   "enable <gadget> [udc]",
	Short: "Bind a gadget to a device controller",
	Long: "Bind a gadget to a device controller. Without an explicit " +
		"controller name the first available one is used; if none is " +
		"available the gadget stays disabled.",
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openState(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g := s.Gadget(args[0])
		if g == nil {
			return fmt.Errorf("no such gadget %q", args[0])
		}
		udc := ""
		if len(args) == 2 {
			udc = args[1]
		}
		if err := g.Enable(udc); err != nil {
			return err
		}
		if g.UDC() == "" {
			fmt.Fprintln(cmd.OutOrStdout(), "no controller available, gadget left disabled")
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "gadget %s bound to %s\n", g.Name(), g.UDC())
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable <gadget>",
	Short: "Unbind a gadget from its device controller",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openState(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g := s.Gadget(args[0])
		if g == nil {
			return fmt.Errorf("no such gadget %q", args[0])
		}
		if err := g.Disable(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "gadget %s disabled\n", g.Name())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
}
