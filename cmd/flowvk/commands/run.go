package commands

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Manwe314/FlowVk/flow"
	"github.com/Manwe314/FlowVk/gpu"
	"github.com/Manwe314/FlowVk/internal/logging"
	"github.com/Manwe314/FlowVk/shadermeta"
)

var runManifest string

// jobSpec is the shape of a run manifest (YAML or JSON).
type jobSpec struct {
	Kernel struct {
		Name     string `mapstructure:"name"`
		Binary   string `mapstructure:"binary"`
		Metadata string `mapstructure:"metadata"`
	} `mapstructure:"kernel"`
	Workgroups []uint32 `mapstructure:"workgroups"`
	Buffers    []struct {
		Name   string `mapstructure:"name"`
		Access string `mapstructure:"access"`
		Size   uint64 `mapstructure:"size"`
		Input  string `mapstructure:"input"`
		Zero   bool   `mapstructure:"zero"`
	} `mapstructure:"buffers"`
	Outputs []struct {
		Name string `mapstructure:"name"`
		File string `mapstructure:"file"`
	} `mapstructure:"outputs"`
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a kernel described by a job manifest",
	Long: `Execute one compute dispatch: declare and size the manifest's
buffers, load input bytes, add the kernel from its SPIR-V binary and
metadata JSON, dispatch with the given workgroup counts, and read the
requested buffers back.`,
	RunE: runJob,
}

func init() {
	runCmd.Flags().StringVar(&runManifest, "manifest", "", "job manifest file (required)")
	runCmd.MarkFlagRequired("manifest")
	rootCmd.AddCommand(runCmd)
}

func loadJob(path string) (*jobSpec, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var job jobSpec
	if err := v.Unmarshal(&job); err != nil {
		return nil, fmt.Errorf("unmarshaling manifest: %w", err)
	}
	if job.Kernel.Name == "" || job.Kernel.Binary == "" || job.Kernel.Metadata == "" {
		return nil, fmt.Errorf("manifest must set kernel.name, kernel.binary, and kernel.metadata")
	}
	if len(job.Workgroups) == 0 {
		job.Workgroups = []uint32{1, 1, 1}
	}
	for len(job.Workgroups) < 3 {
		job.Workgroups = append(job.Workgroups, 1)
	}
	return &job, nil
}

func runJob(cmd *cobra.Command, args []string) error {
	job, err := loadJob(runManifest)
	if err != nil {
		return err
	}

	mod, err := shadermeta.LoadModule(job.Kernel.Metadata)
	if err != nil {
		return fmt.Errorf("loading metadata: %w", err)
	}
	meta := shadermeta.Table{}
	meta.Add(mod)

	dev, err := gpu.Open(gpu.Options{
		AppName:          cfg.Device.AppName,
		PreferDeviceName: cfg.Device.Prefer,
	})
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}
	in := flow.New(dev, meta)
	defer in.Close()

	logging.Infof("running kernel %q on %s", job.Kernel.Name, in.DeviceName())

	buffers := map[string]*flow.Buffer{}
	for _, bs := range job.Buffers {
		access, err := shadermeta.ParseAccess(bs.Access)
		if err != nil {
			return fmt.Errorf("buffer %q: %w", bs.Name, err)
		}
		size := bs.Size
		var input []byte
		if bs.Input != "" {
			input, err = os.ReadFile(bs.Input)
			if err != nil {
				return fmt.Errorf("buffer %q input: %w", bs.Name, err)
			}
			if size == 0 {
				size = uint64(len(input))
			}
		}
		buf, err := in.DeclareBuffer(bs.Name, access, size)
		if err != nil {
			return err
		}
		if input != nil {
			if err := buf.SetBytes(input); err != nil {
				return err
			}
		} else if bs.Zero {
			if err := buf.ZeroFill(); err != nil {
				return err
			}
		}
		buffers[bs.Name] = buf
	}

	if err := in.AddKernel(job.Kernel.Name, job.Kernel.Binary); err != nil {
		return err
	}
	if err := in.RunKernel(job.Kernel.Name,
		job.Workgroups[0], job.Workgroups[1], job.Workgroups[2]); err != nil {
		return err
	}

	for _, out := range job.Outputs {
		buf, ok := buffers[out.Name]
		if !ok {
			return fmt.Errorf("output %q is not a manifest buffer", out.Name)
		}
		data := make([]byte, buf.SizeBytes())
		if err := buf.GetBytes(data); err != nil {
			return err
		}
		if out.File != "" {
			if err := os.WriteFile(out.File, data, 0o644); err != nil {
				return fmt.Errorf("writing output %q: %w", out.Name, err)
			}
			fmt.Printf("%s: %d bytes -> %s\n", out.Name, len(data), out.File)
		} else {
			fmt.Printf("%s (%d bytes):\n%s", out.Name, len(data), hex.Dump(data))
		}
	}
	return nil
}
