package cli

import (
	"context"
	"fmt"
	"time"

	"nihonjindes-editor/internal/store"

	"github.com/spf13/cobra"
)

func newLogCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "log [course.json]",
		Short: "Show recent editing activity for a course file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := app.Path
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" {
				path = DefaultCoursePath
			}

			log, err := store.OpenActivityLog(context.Background(), path)
			if err != nil {
				return fmt.Errorf("open activity log: %w", err)
			}
			defer func() { _ = log.Close() }()

			entries, err := log.Tail(context.Background(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "no activity recorded")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%s  %-14s %-20s %s\n",
					e.At.Format(time.DateTime), e.Type, e.Node, e.Detail)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "Max entries to show (0 = all)")
	return cmd
}
