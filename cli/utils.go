package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/storymapper/pkg/config"
	"github.com/compozy/storymapper/pkg/logger"
)

// logCloser releases the log file opened by the last SetupGlobalConfig.
var logCloser io.Closer

func closeLogFile() {
	if logCloser != nil {
		_ = logCloser.Close()
		logCloser = nil
	}
}

// SetupGlobalConfig loads the env file and configuration, sets up the logger
// and attaches both to the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	sources := make([]config.Source, 0, 2)
	if configFile != "" {
		sources = append(sources, config.NewYAMLProvider(configFile))
	}
	sources = append(sources, config.NewCLIProvider(extractCLIFlags(cmd)))

	ctx := cmd.Context()
	manager := config.NewManager(config.NewService())
	cfg, err := manager.Load(ctx, sources...)
	if err != nil {
		return err
	}

	_, _, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	closeLogFile()
	logCloser, err = logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, logSource, cfg.Runtime.LogFile)
	if err != nil {
		return err
	}
	log := logger.GetDefault()
	log.Debug("configuration loaded", "config_file", configFile, "grouping_mode", cfg.Grouping.Mode)

	ctx = config.ContextWithManager(ctx, manager)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(ctx)
	return nil
}

// extractCLIFlags collects the flags the user set explicitly and that map to
// a configuration path.
func extractCLIFlags(cmd *cobra.Command) map[string]any {
	flags := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if _, ok := config.CLIFlagPaths[f.Name]; !ok {
			return
		}
		if value, err := flagValue(cmd.Flags(), f); err == nil {
			flags[f.Name] = value
		}
	})
	return flags
}

func flagValue(fs *pflag.FlagSet, f *pflag.Flag) (any, error) {
	switch f.Value.Type() {
	case "int":
		return fs.GetInt(f.Name)
	case "float64":
		return fs.GetFloat64(f.Name)
	case "bool":
		return fs.GetBool(f.Name)
	default:
		return f.Value.String(), nil
	}
}

// loadEnvFile applies the --env-file dotenv file. Missing files are ignored
// and paths that escape the working directory are rejected.
func loadEnvFile(cmd *cobra.Command) (string, error) {
	name, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return "", fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if name == "" {
		return "", nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current working directory: %w", err)
	}
	path := name
	if !filepath.IsAbs(path) {
		path = filepath.Join(wd, path)
	}
	path = filepath.Clean(path)
	if !isPathWithinDirectory(path, wd) {
		return "", fmt.Errorf("env file %q is outside the working directory", name)
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return path, nil
	case err != nil:
		return "", fmt.Errorf("failed to stat env file: %w", err)
	case !info.Mode().IsRegular():
		return "", fmt.Errorf("env file %q is not a regular file", name)
	}
	if err := godotenv.Load(path); err != nil {
		return "", fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return path, nil
}

// isPathWithinDirectory reports whether path equals dir or lies below it.
func isPathWithinDirectory(path, dir string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
