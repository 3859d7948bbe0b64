package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
	"github.com/Zuo-Peng/oracle-destiny/internal/render"
	"github.com/Zuo-Peng/oracle-destiny/internal/session"
)

const (
	fieldDate = iota
	fieldTime
	fieldCity
	fieldCount
)

var fieldLabels = [fieldCount]string{"생년월일", "태어난 시간", "도시"}

// Options configures a TUI run.
type Options struct {
	Requester Requester
	Archiver  Archiver // nil disables archiving
	Policy    session.FailurePolicy
	Logger    *zap.Logger
	Query     *chart.BirthQuery // overrides the default form values
}

// model

type model struct {
	machine  *session.Machine
	client   Requester
	archiver Archiver
	logger   *zap.Logger

	fields   [fieldCount]textinput.Model
	focus    int
	question textinput.Model
	thread   viewport.Model
	spinner  spinner.Model

	status   string
	width    int
	height   int
	ready    bool
	quitting bool
}

func newField(placeholder, value string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.SetValue(value)
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = limit
	return ti
}

func initialModel(opts Options) model {
	m := session.New(opts.Policy)
	if opts.Query != nil {
		// the machine starts in Collecting, so this cannot fail
		_ = m.SetQuery(*opts.Query)
	}
	q := m.Query()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	qi := textinput.New()
	qi.Placeholder = "별들에게 물어보세요..."
	qi.Prompt = "> "
	qi.PromptStyle = styleInputPrompt
	qi.TextStyle = styleInput
	qi.CharLimit = 500

	sp := spinner.New()
	sp.Spinner = spinner.Moon

	md := model{
		machine:  m,
		client:   opts.Requester,
		archiver: opts.Archiver,
		logger:   logger,
		fields: [fieldCount]textinput.Model{
			newField("YYYY-MM-DD", q.Date, 10),
			newField("HH:MM", q.Time, 5),
			newField("Seoul", q.City, 64),
		},
		question: qi,
		thread:   viewport.New(0, 0),
		spinner:  sp,
	}
	md.fields[fieldDate].Focus()
	return md
}

// Run starts the TUI and blocks until it exits. A conversation still open
// at exit is archived.
func Run(opts Options) error {
	if opts.Requester == nil {
		return errors.New("tui: no requester")
	}
	m := initialModel(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if t, ok := transcriptOf(fm.machine.State()); ok && opts.Archiver != nil {
		if _, err := opts.Archiver.Save(t); err != nil {
			return fmt.Errorf("archive transcript: %w", err)
		}
	}
	return nil
}

// Init starts the cursor blink on the first form field.
func (m model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages. All session mutations happen here.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.thread = viewport.New(m.threadWidth(), m.threadHeight())
		m.refreshThread()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Reset):
			return m.reset()
		}

		switch m.machine.Phase() {
		case session.Collecting:
			return m.updateForm(msg)
		case session.Chatting:
			return m.updateChat(msg)
		}
		return m, nil

	case spinner.TickMsg:
		if m.machine.Phase() != session.Requesting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case chartSettledMsg:
		if !m.machine.ApplyChart(msg.generation, msg.outcome.Result, msg.outcome.UsedFallback) {
			m.logger.Debug("dropped stale chart", zap.Uint64("generation", msg.generation))
			return m, nil
		}
		s := m.machine.State()
		if s.Phase == session.Collecting {
			// bounced back to the form
			m.status = ""
			cmd := m.focusField(fieldCity)
			return m, cmd
		}
		if s.UsedFallback {
			m.status = "기본 차트로 진행합니다"
		} else {
			m.status = ""
		}
		m.refreshThread()
		cmd := m.question.Focus()
		return m, cmd

	case answerSettledMsg:
		if !m.machine.ApplyAnswer(msg.generation, msg.answer, msg.ok) {
			m.logger.Debug("dropped stale answer", zap.Uint64("generation", msg.generation))
			return m, nil
		}
		m.refreshThread()
		return m, nil

	case archivedMsg:
		if msg.err != nil {
			m.logger.Warn("archive transcript failed", zap.Error(msg.err))
			m.status = "대화 기록 저장 실패"
		}
		return m, nil
	}

	return m, nil
}

func (m model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Submit):
		return m.submit()

	case key.Matches(msg, keys.NextField):
		cmd := m.focusField((m.focus + 1) % fieldCount)
		return m, cmd

	case key.Matches(msg, keys.PrevField):
		cmd := m.focusField((m.focus + fieldCount - 1) % fieldCount)
		return m, cmd
	}

	var cmd tea.Cmd
	m.fields[m.focus], cmd = m.fields[m.focus].Update(msg)
	return m, cmd
}

func (m model) submit() (tea.Model, tea.Cmd) {
	q := chart.BirthQuery{
		Date: m.fields[fieldDate].Value(),
		Time: m.fields[fieldTime].Value(),
		City: m.fields[fieldCity].Value(),
	}
	if err := m.machine.SetQuery(q); err != nil {
		return m, nil
	}
	tk, err := m.machine.Submit()
	if err != nil {
		m.status = formHint(err)
		return m, nil
	}
	m.status = ""
	for i := range m.fields {
		m.fields[i].Blur()
	}
	return m, tea.Batch(m.spinner.Tick, requestChartCmd(m.client, tk))
}

func formHint(err error) string {
	switch {
	case errors.Is(err, chart.ErrInvalidQuery):
		return "입력을 확인해 주세요: " + strings.TrimPrefix(err.Error(), chart.ErrInvalidQuery.Error()+": ")
	case errors.Is(err, session.ErrBusy):
		return "서버 통신 중..."
	default:
		return err.Error()
	}
}

func (m model) updateChat(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Submit):
		return m.ask(m.question.Value())

	case key.Matches(msg, keys.Quick) && m.machine.SuggestedQuestionsVisible() && m.question.Value() == "":
		idx := int(msg.String()[0] - '1')
		if idx >= 0 && idx < len(convo.SuggestedQuestions) {
			return m.ask(convo.SuggestedQuestions[idx])
		}

	case key.Matches(msg, keys.Copy):
		text := render.Transcript(m.machine.State().Turns, render.Options{})
		if err := clipboard.WriteAll(text); err != nil {
			m.status = "클립보드를 사용할 수 없어요"
		} else {
			m.status = "대화를 복사했어요"
		}
		return m, nil

	case key.Matches(msg, keys.ScrollUp):
		m.thread.LineUp(m.threadHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.ScrollDown):
		m.thread.LineDown(m.threadHeight() / 2)
		return m, nil

	case key.Matches(msg, keys.PageUp):
		m.thread.LineUp(m.threadHeight())
		return m, nil

	case key.Matches(msg, keys.PageDown):
		m.thread.LineDown(m.threadHeight())
		return m, nil
	}

	var cmd tea.Cmd
	m.question, cmd = m.question.Update(msg)
	return m, cmd
}

func (m model) ask(question string) (tea.Model, tea.Cmd) {
	tk, err := m.machine.Ask(question)
	switch {
	case errors.Is(err, session.ErrAwaitingAnswer):
		m.status = "이전 질문에 답하는 중이에요"
		return m, nil
	case err != nil:
		return m, nil
	}
	m.status = ""
	m.question.SetValue("")
	m.refreshThread()
	return m, requestAnswerCmd(m.client, tk)
}

// reset archives an open conversation and returns to the form.
// Outstanding requests are left to settle and are dropped as stale.
func (m model) reset() (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if t, ok := transcriptOf(m.machine.State()); ok {
		cmd = archiveCmd(m.archiver, t)
	}
	m.machine.Reset()

	q := m.machine.Query()
	m.fields[fieldDate].SetValue(q.Date)
	m.fields[fieldTime].SetValue(q.Time)
	m.fields[fieldCity].SetValue(q.City)
	m.question.SetValue("")
	m.question.Blur()
	m.status = ""
	m.refreshThread()
	focusCmd := m.focusField(fieldDate)
	return m, tea.Batch(cmd, focusCmd)
}

func (m *model) focusField(i int) tea.Cmd {
	m.focus = i
	for j := range m.fields {
		if j != i {
			m.fields[j].Blur()
		}
	}
	return m.fields[i].Focus()
}

func (m *model) refreshThread() {
	turns := m.machine.State().Turns
	m.thread.SetContent(render.Transcript(turns, render.Options{Width: m.threadWidth(), Color: true}))
	m.thread.GotoBottom()
}

// View renders the full TUI.
func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	header := lipgloss.JoinVertical(lipgloss.Left,
		styleTitle.Render("✦ Oracle Destiny"),
		styleSubtitle.Render("별들이 들려주는 당신의 이야기"),
	)

	var body string
	switch m.machine.Phase() {
	case session.Collecting:
		body = m.formView()
	case session.Requesting:
		body = m.loadingView()
	case session.Chatting:
		body = m.chatView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, m.statusBar())
}

// layout helpers

func (m model) threadWidth() int {
	if m.width <= 0 {
		return 60
	}
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func (m model) threadHeight() int {
	if m.height <= 0 {
		return 15
	}
	// header (2) + gap (1) + planets (1) + suggestions (1) + input (1) + status (1) + borders (2)
	h := m.height - 9
	if h < 3 {
		h = 3
	}
	return h
}

func (m model) statusBar() string {
	var parts []string
	if m.status != "" {
		parts = append(parts, m.status)
	}
	switch m.machine.Phase() {
	case session.Collecting:
		parts = append(parts, "tab 이동", "enter 운세 보기")
	case session.Requesting:
		parts = append(parts, "C-r 취소")
	case session.Chatting:
		parts = append(parts, "enter 보내기", "C-u/C-d 스크롤", "C-y 복사", "C-r 다시 하기")
	}
	parts = append(parts, "esc 종료")
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
