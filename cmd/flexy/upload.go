package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Rrens/flexy-chat/internal/domain"
	"github.com/spf13/cobra"
)

func newUploadCmd(c *cli) *cobra.Command {
	var (
		name string
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a data file and wait for ingestion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			db, err := openStore(ctx, c.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			backend, _, err := newBackend(ctx, c.cfg, db)
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open file: %w", err)
			}
			defer f.Close()

			uploaded, err := backend.UploadFile(ctx, filepath.Base(args[0]), f, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "uploaded %s as file %d\n", uploaded.OriginalFilename, uploaded.ID)

			if !wait || uploaded.Status == domain.FileCompleted {
				return nil
			}

			done, err := backend.PollFileStatus(ctx, uploaded.ID, func(progress float64) {
				fmt.Fprintf(out, "processing %.0f%%\n", progress)
			})
			if err != nil {
				return err
			}
			if done.Metadata != nil {
				fmt.Fprintf(out, "ready: %d rows, columns %v\n", done.Metadata.RowCount, done.Metadata.Columns)
			} else {
				fmt.Fprintln(out, "ready")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name of the file")
	cmd.Flags().BoolVar(&wait, "wait", true, "wait until ingestion finishes")
	return cmd
}
