package main

import (
	"io"
	"os"

	"github.com/Rrens/flexy-chat/internal/config"
	"github.com/Rrens/flexy-chat/internal/logger"
	"github.com/spf13/cobra"
)

// cli holds state shared by every subcommand
type cli struct {
	cfg       *config.Config
	logCloser io.Closer
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "flexy",
		Short:         "Conversational analytics chat client",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			c.cfg = cfg

			closer, err := logger.Setup(cfg.Logging, os.Stderr)
			if err != nil {
				return err
			}
			c.logCloser = closer
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logCloser != nil {
				return c.logCloser.Close()
			}
			return nil
		},
	}

	root.AddCommand(
		newServeCmd(c),
		newChatCmd(c),
		newLoginCmd(c),
		newUploadCmd(c),
		newMigrateCmd(c),
	)

	return root
}
