// Package cmdutil holds helpers shared by the CLI commands: output paths,
// struct flattening and Datasette export.
package cmdutil

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// OutputConfig holds the file output settings of a command.
type OutputConfig struct {
	// Output is the path given on the command line
	Output string
	// ConfigKey is the viper section consulted when Output is empty
	ConfigKey string
	// Overwrite allows replacing an existing file
	Overwrite bool
}

// SetupOutputPath resolves cfg.Output and creates its parent directory.
// An empty flag falls back to "<ConfigKey>.output"; relative paths are placed
// under "jsonoutputdir" when that is set. An empty result means stdout.
func SetupOutputPath(cfg *OutputConfig) error {
	output := cfg.Output
	if output == "" && cfg.ConfigKey != "" {
		output = viper.GetString(cfg.ConfigKey + ".output")
	}
	if output == "" {
		cfg.Output = ""
		return nil
	}

	if baseDir := viper.GetString("jsonoutputdir"); baseDir != "" && !filepath.IsAbs(output) {
		output = filepath.Join(baseDir, output)
	}
	cfg.Output = filepath.Clean(output)

	if err := os.MkdirAll(filepath.Dir(cfg.Output), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	return nil
}
