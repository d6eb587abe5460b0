package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Manwe314/FlowVk/gpu"
)

var deviceCmd = &cobra.Command{
	Use:   "device",
	Short: "List Vulkan compute devices",
	Long: `Enumerate the physical devices the Vulkan loader can see and
whether each one exposes a compute queue family.`,
	RunE: runDeviceList,
}

func init() {
	rootCmd.AddCommand(deviceCmd)
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	infos, err := gpu.ListDevices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No Vulkan devices found.")
		return nil
	}

	for i, info := range infos {
		compute := "no compute queue"
		if info.HasCompute {
			compute = "compute"
		}
		marker := " "
		if cfg != nil && cfg.Device.Prefer != "" && info.Name == cfg.Device.Prefer {
			marker = "*"
		}
		fmt.Printf("%s %d: %s (%s, Vulkan %s, %s)\n",
			marker, i, info.Name, info.Type, info.APIVersion, compute)
	}
	return nil
}
