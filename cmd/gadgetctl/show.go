package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/gadgetfs/gadget"
)

var showCmd = &cobra.Command{
	Use:   "show [gadget]",
	Short: "Print the gadget tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openState(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		gadgets := s.Gadgets()
		if len(args) == 1 {
			g := s.Gadget(args[0])
			if g == nil {
				return fmt.Errorf("no such gadget %q", args[0])
			}
			gadgets = []*gadget.Gadget{g}
		}

		for _, g := range gadgets {
			udc := g.UDC()
			if udc == "" {
				udc = "(disabled)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  UDC: %s\n", g.Name(), udc)
			for _, f := range g.Functions() {
				fmt.Fprintf(cmd.OutOrStdout(), "  function %s (%s)\n", f.Name(), f.Type())
			}
			for _, c := range g.Configs() {
				fmt.Fprintf(cmd.OutOrStdout(), "  config %s\n", c.Name())
				for _, b := range c.Bindings() {
					target := "(unresolved)"
					if t := b.Target(); t != nil {
						target = t.Name()
					}
					fmt.Fprintf(cmd.OutOrStdout(), "    %s -> %s\n", b.Name(), target)
				}
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
