package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/oracle"
	"github.com/Zuo-Peng/oracle-destiny/internal/session"
)

// Requester is the backend the TUI talks to. *oracle.Client implements it.
type Requester interface {
	RequestChart(ctx context.Context, q chart.BirthQuery) oracle.ChartOutcome
	RequestAnswer(ctx context.Context, question string, planets []chart.Placement) (string, bool)
}

// Archiver stores finished conversations. *archive.DB implements it.
type Archiver interface {
	Save(t archive.Transcript) (int64, error)
}

// chartSettledMsg is sent when a chart request completes, tagged with the
// session generation it was issued under.
type chartSettledMsg struct {
	generation uint64
	outcome    oracle.ChartOutcome
}

// answerSettledMsg is sent when a question request completes.
type answerSettledMsg struct {
	generation uint64
	answer     string
	ok         bool
}

type archivedMsg struct {
	id  int64
	err error
}

// requestChartCmd returns a tea.Cmd that runs the chart request async.
func requestChartCmd(r Requester, tk session.Ticket) tea.Cmd {
	return func() tea.Msg {
		out := r.RequestChart(context.Background(), tk.Query)
		return chartSettledMsg{generation: tk.Generation, outcome: out}
	}
}

// requestAnswerCmd returns a tea.Cmd that runs the question request async.
func requestAnswerCmd(r Requester, tk session.AskTicket) tea.Cmd {
	return func() tea.Msg {
		answer, ok := r.RequestAnswer(context.Background(), tk.Question, tk.Planets)
		return answerSettledMsg{generation: tk.Generation, answer: answer, ok: ok}
	}
}

// transcriptOf snapshots a chatting session for the archive. It reports
// false when there is nothing worth keeping.
func transcriptOf(s session.State) (archive.Transcript, bool) {
	if s.Phase != session.Chatting || s.Chart == nil || len(s.Turns) == 0 {
		return archive.Transcript{}, false
	}
	return archive.Transcript{
		Query:        s.Query,
		Chart:        *s.Chart,
		UsedFallback: s.UsedFallback,
		Turns:        s.Turns,
	}, true
}

func archiveCmd(a Archiver, t archive.Transcript) tea.Cmd {
	if a == nil {
		return nil
	}
	return func() tea.Msg {
		id, err := a.Save(t)
		return archivedMsg{id: id, err: err}
	}
}
