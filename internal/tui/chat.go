package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
	"github.com/Zuo-Peng/oracle-destiny/internal/render"
)

// formView renders the birth data form shown while collecting.
func (m model) formView() string {
	var rows []string
	if alert := m.machine.State().Alert; alert != "" {
		rows = append(rows, styleAlert.Render("! "+alert), "")
	}

	for i, f := range m.fields {
		label := styleLabel.Render(fieldLabels[i])
		if i == m.focus {
			label = styleLabelFocused.Render(fieldLabels[i])
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top, label, f.View()))
	}

	rows = append(rows, "", styleButton.Render("운세 보기"))
	return strings.Join(rows, "\n")
}

// loadingView is shown while the chart request is in flight.
func (m model) loadingView() string {
	q := m.machine.Query()
	return fmt.Sprintf("%s 서버 통신 중...\n\n%s",
		m.spinner.View(),
		styleSubtitle.Render(fmt.Sprintf("%s %s · %s", q.Date, q.Time, q.City)))
}

// chatView renders the planets strip, the thread, quick replies and the input.
func (m model) chatView() string {
	s := m.machine.State()
	width := m.threadWidth()

	rows := []string{planetStrip(s.Chart, width)}

	m.thread.Width = width
	m.thread.Height = m.threadHeight()
	rows = append(rows, stylePanelBorder.Width(width).Render(m.thread.View()))

	if m.machine.SuggestedQuestionsVisible() {
		rows = append(rows, suggestionLine(width))
	} else {
		rows = append(rows, "")
	}

	input := m.question.View()
	if m.machine.AwaitingAnswer() {
		input = styleSubtitle.Render(convo.PendingText)
	}
	rows = append(rows, input)
	return strings.Join(rows, "\n")
}

// planetStrip lists the chart's placements on one line, truncated to width.
func planetStrip(c *chart.Result, width int) string {
	if c == nil {
		return ""
	}
	parts := make([]string, 0, len(c.Planets))
	for _, p := range c.Planets {
		parts = append(parts, fmt.Sprintf("%s %s", p.Name, p.Sign))
	}
	return stylePlanet.Render(render.Truncate(strings.Join(parts, " · "), width))
}

func suggestionLine(width int) string {
	parts := make([]string, 0, len(convo.SuggestedQuestions))
	for i, q := range convo.SuggestedQuestions {
		parts = append(parts, fmt.Sprintf("[%d] %s", i+1, q))
	}
	return styleSuggestion.Render(render.Truncate(strings.Join(parts, "  "), width))
}
