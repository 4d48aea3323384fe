package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/storymapper/pkg/config"
)

// MiroCmd groups the Miro board helpers.
func MiroCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "miro",
		Short: "Miro board helpers",
	}
	cmd.AddCommand(miroCheckCmd())
	return cmd
}

func miroCheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the access token and board id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			reader, err := newMiroReader(cfg)
			if err != nil {
				return err
			}
			if err := reader.Check(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Board "+cfg.Miro.BoardID+" is reachable"))
			return err
		},
	}
	cmd.Flags().String("board", "", "Miro board id")
	return cmd
}
