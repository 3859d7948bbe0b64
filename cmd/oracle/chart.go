package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/config"
	"github.com/Zuo-Peng/oracle-destiny/internal/logging"
	"github.com/Zuo-Peng/oracle-destiny/internal/render"
	"github.com/Zuo-Peng/oracle-destiny/internal/session"
	"github.com/Zuo-Peng/oracle-destiny/internal/tui"
)

func chartCmd() *cobra.Command {
	q := chart.DefaultQuery()
	var questions []string
	var plain bool

	cmd := &cobra.Command{
		Use:   "chart",
		Short: "Request a chart and optionally ask questions about it",
		Long: `Requests a chart for the given birth data. With --ask, each question is
sent in order and the whole conversation is printed.

When stdout is a terminal and no --ask is given, the interactive chat opens
with the form prefilled. Use --plain to force text output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			// Interactive TUI when stdout is a terminal; text output for pipes
			if !plain && len(questions) == 0 && term.IsTerminal(int(os.Stdout.Fd())) {
				return runInteractive(cfg, &tui.Options{Query: &q})
			}

			logger, err := logging.New("", verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			transcript, err := converse(cmd.Context(), newClient(cfg, logger), cfg.Policy(), q, questions)
			if err != nil {
				return err
			}
			printTranscript(os.Stdout, transcript)

			if cfg.Archive {
				db, err := archive.OpenDB(cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open archive: %w", err)
				}
				defer db.Close()
				if _, err := db.Save(transcript); err != nil {
					return fmt.Errorf("archive transcript: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Date, "date", q.Date, "Birth date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&q.Time, "time", q.Time, "Birth time (HH:MM)")
	cmd.Flags().StringVar(&q.City, "city", q.City, "Birth city")
	cmd.Flags().StringArrayVar(&questions, "ask", nil, "Question to ask (repeatable)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print text even on a terminal")

	return cmd
}

// converse drives a session without the TUI: submit, settle the chart, then
// ask each question in turn.
func converse(ctx context.Context, r tui.Requester, policy session.FailurePolicy, q chart.BirthQuery, questions []string) (archive.Transcript, error) {
	m := session.New(policy)
	if err := m.SetQuery(q); err != nil {
		return archive.Transcript{}, err
	}
	tk, err := m.Submit()
	if err != nil {
		return archive.Transcript{}, err
	}

	out := r.RequestChart(ctx, tk.Query)
	m.ApplyChart(tk.Generation, out.Result, out.UsedFallback)
	if m.Phase() != session.Chatting {
		return archive.Transcript{}, errors.New(m.State().Alert)
	}

	for _, question := range questions {
		at, err := m.Ask(question)
		if err != nil {
			// blank questions are skipped like in the chat
			continue
		}
		answer, ok := r.RequestAnswer(ctx, at.Question, at.Planets)
		m.ApplyAnswer(at.Generation, answer, ok)
	}

	s := m.State()
	return archive.Transcript{
		Query:        s.Query,
		Chart:        *s.Chart,
		UsedFallback: s.UsedFallback,
		Turns:        s.Turns,
	}, nil
}

func printTranscript(w io.Writer, t archive.Transcript) {
	color := false
	if f, ok := w.(*os.File); ok {
		color = term.IsTerminal(int(f.Fd()))
	}
	opts := render.Options{Color: color}

	fmt.Fprintf(w, "%s %s · %s\n", t.Query.Date, t.Query.Time, t.Query.City)
	if t.UsedFallback {
		fmt.Fprintln(w, "(fallback chart)")
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, render.Planets(t.Chart.Planets, opts))
	fmt.Fprintln(w)
	fmt.Fprint(w, render.Transcript(t.Turns, opts))
}
