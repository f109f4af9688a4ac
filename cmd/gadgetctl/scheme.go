package main

import (
	"fmt"

	"github.com/go-git/go-billy/v5/util"
	"github.com/spf13/cobra"

	"github.com/agentic-research/gadgetfs/scheme"
)

var applyCmd = &cobra.Command{
	Use:   "apply <scheme.yaml>",
	Short: "Create a gadget from a YAML scheme",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := util.ReadFile(storeFS, args[0])
		if err != nil {
			return fmt.Errorf("read scheme: %w", err)
		}
		sc, err := scheme.Parse(data)
		if err != nil {
			return err
		}

		s, err := openState(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		g, err := scheme.Apply(s, sc)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "applied scheme, created gadget %s\n", g.Name())
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <gadget>",
	Short: "Write a gadget's YAML scheme to stdout",
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
		sc, err := scheme.Export(g)
		if err != nil {
			return err
		}
		data, err := sc.Encode()
		if err != nil {
			return err
		}
		cmd.OutOrStdout().Write(data)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(exportCmd)
}
