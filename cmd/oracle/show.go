package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/config"
)

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print an archived conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid id %q", args[0])
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := archive.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			t, err := db.Get(id)
			if err != nil {
				return err
			}
			if t == nil {
				return fmt.Errorf("conversation not found: %d", id)
			}

			printTranscript(os.Stdout, *t)
			return nil
		},
	}
}
