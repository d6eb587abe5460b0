package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Manwe314/FlowVk/internal/logging"
	"github.com/Manwe314/FlowVk/shadermeta"
	"github.com/Manwe314/FlowVk/shaderpp"
)

var (
	ppIn      string
	ppOutGLSL string
	ppOutMeta string
	ppKernel  string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Expand @buffer annotations in a compute shader",
	Long: `Rewrite an annotated GLSL compute shader into plain GLSL plus a
binding metadata JSON file.

Each @buffer[name=... type=... access=... layout=...] decoration becomes
a storage buffer declaration; bindings are numbered in order of first
appearance. The metadata file is what AddKernel consumes at run time.`,
	RunE: runPreprocess,
}

func init() {
	preprocessCmd.Flags().StringVar(&ppIn, "in", "", "annotated shader source (required)")
	preprocessCmd.Flags().StringVar(&ppOutGLSL, "out-glsl", "", "output GLSL path (default: input with .glsl)")
	preprocessCmd.Flags().StringVar(&ppOutMeta, "out-meta", "", "output metadata JSON path (default: input with .json)")
	preprocessCmd.Flags().StringVar(&ppKernel, "kernel", "", "kernel name (default: input basename)")
	preprocessCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(preprocessCmd)
}

func runPreprocess(cmd *cobra.Command, args []string) error {
	text, err := os.ReadFile(ppIn)
	if err != nil {
		return fmt.Errorf("reading shader: %w", err)
	}

	kernel := ppKernel
	if kernel == "" {
		base := filepath.Base(ppIn)
		kernel = strings.TrimSuffix(base, filepath.Ext(base))
	}

	res := shaderpp.Transform(kernel, string(text))
	for _, msg := range res.Errs {
		logging.Warnf("preprocess: %s", msg)
	}

	outGLSL := ppOutGLSL
	if outGLSL == "" {
		outGLSL = replaceExt(ppIn, ".glsl")
		if cfg != nil && cfg.Shader.OutputDir != "" {
			outGLSL = filepath.Join(cfg.Shader.OutputDir, filepath.Base(outGLSL))
		}
	}
	outMeta := ppOutMeta
	if outMeta == "" {
		outMeta = replaceExt(ppIn, ".json")
		if cfg != nil && cfg.Shader.MetadataDir != "" {
			outMeta = filepath.Join(cfg.Shader.MetadataDir, filepath.Base(outMeta))
		}
	}

	if err := os.MkdirAll(filepath.Dir(outGLSL), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outGLSL, []byte(res.Source), 0o644); err != nil {
		return fmt.Errorf("writing GLSL: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(outMeta), 0o755); err != nil {
		return err
	}
	if err := shadermeta.WriteModule(outMeta, res.Module); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	fmt.Printf("kernel %q: %d buffer binding(s)\n", kernel, len(res.Module.Buffers))
	fmt.Printf("  glsl: %s\n", outGLSL)
	fmt.Printf("  meta: %s\n", outMeta)
	if len(res.Errs) > 0 {
		return fmt.Errorf("%d decoration error(s), see %s", len(res.Errs), outGLSL)
	}
	return nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
