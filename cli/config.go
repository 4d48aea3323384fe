package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/compozy/storymapper/pkg/config"
)

const outputFormatTable = "table"

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection",
	}

	cmd.AddCommand(
		configShowCmd(),
		configValidateCmd(),
	)

	return cmd
}

// configShowCmd shows the current configuration with source information
func configShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values and their sources",
		Long: `Display the effective configuration with secrets redacted.
With --sources each value is annotated with the source (cli, yaml, env or default) that set it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager := config.ManagerFromContext(cmd.Context())
			cfg := config.FromContext(cmd.Context())
			var sources map[string]config.SourceType
			if showSources {
				sources = collectSources(manager.Service, cfg)
			}
			return formatConfigOutput(cmd.OutOrStdout(), cfg, sources, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", OutputFormatYAML, "Output format (yaml, json, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show configuration sources")
	return cmd
}

// configValidateCmd loads the configuration and reports whether it is valid.
// Loading already validates, so reaching RunE means the configuration passed.
func configValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configFile, err := cmd.Flags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Configuration is valid")+" "+
				mutedStyle.Render("("+configFile+")"))
			return err
		},
	}
}

// formatConfigOutput formats and outputs configuration based on requested format
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
) error {
	switch format {
	case OutputFormatJSON:
		return outputJSON(w, cfg, sources)
	case OutputFormatYAML:
		return outputYAML(w, cfg, sources)
	case outputFormatTable:
		return outputTable(w, cfg, sources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

func outputJSON(w io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if len(sources) == 0 {
		return encoder.Encode(cfg)
	}
	return encoder.Encode(map[string]any{"config": cfg, "sources": sources})
}

func outputYAML(w io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	var doc any = cfg
	if len(sources) > 0 {
		doc = map[string]any{"config": cfg, "sources": sources}
	}
	if err := encoder.Encode(doc); err != nil {
		return err
	}
	return encoder.Close()
}

func outputTable(w io.Writer, cfg *config.Config, sources map[string]config.SourceType) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	flat := make(map[string]string)
	flattenConfig("", reflect.ValueOf(cfg).Elem(), flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	if sources != nil {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE\tENV")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
	}
	for _, key := range keys {
		if sources == nil {
			fmt.Fprintf(tw, "%s\t%s\n", key, flat[key])
			continue
		}
		source := sources[key]
		if source == "" {
			source = config.SourceDefault
		}
		envVar := config.GetEnvVarForConfigPath(key)
		if envVar == "" {
			envVar = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", key, flat[key], source, envVar)
	}
	return tw.Flush()
}

// flattenConfig walks the koanf-tagged fields of val into dotted keys.
// Secrets go through their String method and stay redacted.
func flattenConfig(prefix string, val reflect.Value, out map[string]string) {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		fieldVal := val.Field(i)
		switch v := fieldVal.Interface().(type) {
		case config.SensitiveString:
			out[key] = v.String()
		case time.Duration:
			out[key] = v.String()
		case []string:
			out[key] = strings.Join(v, ",")
		case string:
			if strings.ContainsAny(v, "\n\t") {
				v = strconv.Quote(v)
			}
			out[key] = v
		default:
			if fieldVal.Kind() == reflect.Struct {
				flattenConfig(key, fieldVal, out)
				continue
			}
			out[key] = fmt.Sprintf("%v", v)
		}
	}
}

// collectSources returns the source of every leaf key.
func collectSources(service config.Service, cfg *config.Config) map[string]config.SourceType {
	flat := make(map[string]string)
	flattenConfig("", reflect.ValueOf(cfg).Elem(), flat)
	sources := make(map[string]config.SourceType, len(flat))
	for key := range flat {
		sources[key] = service.GetSource(key)
	}
	return sources
}
