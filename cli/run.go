package cli

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/compozy/storymapper/engine/storymap"
	"github.com/compozy/storymapper/pkg/config"
	"github.com/compozy/storymapper/pkg/logger"
)

type runOptions struct {
	source string
	input  string
	sink   string
	format string
}

// RunCmd runs the full read, group, name and push pipeline.
func RunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Group notes from a source and push the story map to a sink",
		Example: `  storymapper run --source miro --board uXjVabc= --sink jira --jira-project WS
  storymapper run --source file --input notes.txt --mode distance --distance-threshold 0.6`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return executeRun(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.source, "source", SourceMiro, "Where notes come from (miro, file)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Notes file for --source file, - reads stdin")
	cmd.Flags().StringVar(&opts.sink, "sink", SinkConsole, "Where the story map goes (console, jira, storiesonboard)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", OutputFormatText, "Output format (text, json)")
	addGroupingFlags(cmd)
	addTargetFlags(cmd)
	return cmd
}

// GroupCmd groups notes from a file or stdin and prints the tree.
func GroupCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "group [file]",
		Short: "Group notes from a file or stdin and print the story map",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := runOptions{source: SourceFile, input: "-", sink: SinkConsole, format: format}
			if len(args) == 1 {
				opts.input = args[0]
			}
			if opts.input == "-" && cmd.InOrStdin() == os.Stdin && isatty.IsTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("no notes input: pass a file or pipe notes on stdin")
			}
			return executeRun(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", OutputFormatText, "Output format (text, json)")
	addGroupingFlags(cmd)
	return cmd
}

// addGroupingFlags registers overrides for the grouping and naming settings.
// Only flags the user sets take effect; the defaults shown mirror the config defaults.
func addGroupingFlags(cmd *cobra.Command) {
	d := config.Default()
	cmd.Flags().String("mode", d.Grouping.Mode, "Grouping mode (clusters, distance)")
	cmd.Flags().Int("clusters", d.Grouping.ClusterCount, "Number of groups in clusters mode")
	cmd.Flags().Float64("distance-threshold", d.Grouping.DistanceThreshold, "Merge distance cut-off in distance mode")
	cmd.Flags().String("linkage", d.Grouping.Linkage, "Linkage (average, complete, single, ward)")
	cmd.Flags().String("metric", d.Grouping.Metric, "Distance metric (cosine, euclidean, manhattan)")
	cmd.Flags().String("embedder", d.Embedder.Provider, "Embedding provider (local, openai, ollama, googleai)")
	cmd.Flags().String("embedder-model", d.Embedder.Model, "Embedding model name")
	cmd.Flags().String("naming", d.Naming.Mode, "Group naming (synthetic, llm)")
	cmd.Flags().String("naming-provider", d.Naming.Provider, "Chat model provider for llm naming")
	cmd.Flags().String("naming-model", d.Naming.Model, "Chat model for llm naming")
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().String("board", "", "Miro board id")
	cmd.Flags().String("jira-project", "", "Jira project key")
	cmd.Flags().String("sob-board", "", "StoriesOnBoard board id")
}

func executeRun(cmd *cobra.Command, opts runOptions) error {
	if err := validateOutputFormat(opts.format, OutputFormatText, OutputFormatJSON); err != nil {
		return err
	}
	ctx := cmd.Context()
	log := logger.FromContext(ctx)
	cfg := config.FromContext(ctx)

	source, err := buildSource(cfg, opts.source, opts.input, cmd.InOrStdin())
	if err != nil {
		return err
	}
	sink, err := buildSink(cfg, opts.sink, opts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	grouper, err := buildGrouper(ctx, cfg)
	if err != nil {
		return err
	}
	namer, err := buildNamer(ctx, cfg)
	if err != nil {
		return err
	}

	pipeline := &storymap.Pipeline{Source: source, Grouper: grouper, Namer: namer, Sink: sink}
	log.Debug("starting run", "source", opts.source, "sink", opts.sink)
	report, runErr := pipeline.Run(ctx)
	if report != nil && opts.sink != SinkConsole {
		if err := printPushSummary(cmd.OutOrStdout(), report, opts.format); err != nil && runErr == nil {
			return err
		}
	}
	return runErr
}
