package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Manwe314/FlowVk/internal/config"
	"github.com/Manwe314/FlowVk/internal/logging"
)

var (
	cfgFile string
	verbose bool

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "flowvk",
	Short: "Named-buffer GPU compute runner",
	Long: `FlowVk runs compute kernels against named device buffers without
per-kernel binding boilerplate.

It preprocesses annotated GLSL compute shaders into plain GLSL plus
binding metadata, and dispatches compiled SPIR-V kernels on a Vulkan
compute queue with the required host/device memory barriers.`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.flowvk/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads configuration and wires the logger
func initConfig() {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	if err := logging.Init(level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
		os.Exit(1)
	}
}
