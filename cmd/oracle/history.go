package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/config"
	"github.com/Zuo-Peng/oracle-destiny/internal/render"
)

const (
	hColorReset   = "\033[0m"
	hColorBoldRed = "\033[1;31m"
	hColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string) string {
	snippet = strings.ReplaceAll(snippet, ">>>", hColorBoldRed)
	snippet = strings.ReplaceAll(snippet, "<<<", hColorReset)
	return snippet
}

func deleteTranscript(w io.Writer, db *archive.DB, id int64) error {
	if err := db.Delete(id); err != nil {
		if errors.Is(err, archive.ErrNotFound) {
			return fmt.Errorf("conversation not found: %d", id)
		}
		return fmt.Errorf("delete conversation %d: %w", id, err)
	}
	fmt.Fprintf(w, "Deleted conversation %d.\n", id)
	return nil
}

func historyCmd() *cobra.Command {
	var query, since string
	var limit int
	var del int64

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived conversations, newest first",
		Long: `Lists archived conversations. With --query, only conversations containing
the words are shown, with the matching line. Output is TSV:
  id, createdAt, city, birthDate, turns, summary|snippet

With --delete <id>, the conversation is removed from the archive instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			db, err := archive.OpenDB(cfg.DBPath)
			if err != nil {
				return err
			}
			defer db.Close()

			if cmd.Flags().Changed("delete") {
				return deleteTranscript(os.Stdout, db, del)
			}

			entries, err := archive.List(db, archive.Options{Query: query, Since: since, Limit: limit})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(os.Stderr, "No conversations found.")
				return nil
			}

			for _, e := range entries {
				text := e.Summary
				if e.Snippet != "" {
					text = e.Snippet
				}
				text = strings.ReplaceAll(text, "\t", " ")
				text = strings.ReplaceAll(text, "\n", " ")
				text = colorizeSnippet(render.Truncate(text, 80)) + hColorReset
				fmt.Printf("%d\t%s%s%s\t%s\t%s\t%d\t%s\n",
					e.ID,
					hColorDim, e.CreatedAt.Local().Format("2006-01-02 15:04"), hColorReset,
					e.City,
					e.BirthDate,
					e.Turns,
					text,
				)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "Full-text filter over conversation turns")
	cmd.Flags().StringVar(&since, "since", "", "Only conversations since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "Max results (0 = no limit)")
	cmd.Flags().Int64Var(&del, "delete", 0, "Delete the conversation with this id")

	return cmd
}
