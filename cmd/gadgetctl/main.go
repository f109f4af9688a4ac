// gadgetctl inspects and manipulates USB gadget compositions through the
// kernel's gadget configfs tree.
package main

import (
	"fmt"
	"os"

	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/gadgetfs/gadget"
)

var configfsPath string

// storeFS is the filesystem the commands operate on. Rooted at / so both
// the configfs mount and /sys/class/udc are reachable; tests swap in a
// memfs.
var storeFS billy.Filesystem = osfs.New("/")

var rootCmd = &cobra.Command{
	Use:           "gadgetctl",
	Short:         "Manage USB gadgets via configfs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configfsPath, "configfs",
		"/sys/kernel/config", "configfs mount point")
}

// openState loads the gadget tree. Partial-load failures are reported but
// the surviving tree is still used.
func openState(cmd *cobra.Command) (*gadget.State, error) {
	s, err := gadget.Open(storeFS, configfsPath)
	if err != nil {
		if s == nil {
			return nil, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: partial load: %v\n", err)
	}
	return s, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "gadgetctl: %v\n", err)
		os.Exit(1)
	}
}
