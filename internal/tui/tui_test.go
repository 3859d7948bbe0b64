package tui

import (
	"context"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/oracle-destiny/internal/archive"
	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
	"github.com/Zuo-Peng/oracle-destiny/internal/oracle"
	"github.com/Zuo-Peng/oracle-destiny/internal/session"
)

type fakeRequester struct {
	outcome oracle.ChartOutcome
	answer  string
	ok      bool

	mu        sync.Mutex
	queries   []chart.BirthQuery
	questions []string
}

func (f *fakeRequester) RequestChart(ctx context.Context, q chart.BirthQuery) oracle.ChartOutcome {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return f.outcome
}

func (f *fakeRequester) RequestAnswer(ctx context.Context, question string, planets []chart.Placement) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions = append(f.questions, question)
	return f.answer, f.ok
}

type fakeArchiver struct {
	saved []archive.Transcript
}

func (f *fakeArchiver) Save(t archive.Transcript) (int64, error) {
	f.saved = append(f.saved, t)
	return int64(len(f.saved)), nil
}

var goodChart = oracle.ChartOutcome{Result: chart.Result{
	Summary: "처녀자리 태양의 꼼꼼함",
	Planets: []chart.Placement{{Name: "Sun", Sign: "Virgo", House: "10 House"}},
}}

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyReset = tea.KeyMsg{Type: tea.KeyCtrlR}
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, req *fakeRequester, policy session.FailurePolicy, arch Archiver) model {
	t.Helper()
	m := initialModel(Options{Requester: req, Policy: policy, Archiver: arch})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return next.(model)
}

func update(t *testing.T, m model, msg tea.Msg) (model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(model), cmd
}

// collect runs cmd and returns the settle messages it produces, expanding batches.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	switch msg.(type) {
	case chartSettledMsg, answerSettledMsg, archivedMsg:
		return []tea.Msg{msg}
	}
	return nil
}

func chattingModel(t *testing.T, req *fakeRequester, arch Archiver) model {
	t.Helper()
	m := newTestModel(t, req, session.PolicyProceed, arch)
	m, cmd := update(t, m, keyEnter)
	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	m, _ = update(t, m, msgs[0])
	require.Equal(t, session.Chatting, m.machine.Phase())
	return m
}

func TestSubmitFormReachesChat(t *testing.T) {
	req := &fakeRequester{outcome: goodChart}
	m := newTestModel(t, req, session.PolicyProceed, nil)
	assert.Contains(t, m.View(), "운세 보기")

	m, cmd := update(t, m, keyEnter)
	assert.Equal(t, session.Requesting, m.machine.Phase())
	assert.Contains(t, m.View(), "서버 통신 중")

	// a second submit while requesting is ignored
	m, again := update(t, m, keyEnter)
	assert.Nil(t, again)

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, []chart.BirthQuery{chart.DefaultQuery()}, req.queries)

	m, _ = update(t, m, msgs[0])
	s := m.machine.State()
	assert.Equal(t, session.Chatting, s.Phase)
	require.Len(t, s.Turns, 1)

	view := m.View()
	assert.Contains(t, view, "처녀자리 태양의 꼼꼼함")
	assert.Contains(t, view, "Sun Virgo")
	assert.Contains(t, view, "[1] "+convo.SuggestedQuestions[0])
}

func TestBlankCityShowsHint(t *testing.T) {
	req := &fakeRequester{outcome: goodChart}
	m := newTestModel(t, req, session.PolicyProceed, nil)
	m.fields[fieldCity].SetValue("   ")

	m, cmd := update(t, m, keyEnter)
	assert.Nil(t, cmd)
	assert.Equal(t, session.Collecting, m.machine.Phase())
	assert.Contains(t, m.status, "입력을 확인해 주세요")
	assert.Empty(t, req.queries)
}

func TestFormFieldNavigation(t *testing.T) {
	m := newTestModel(t, &fakeRequester{outcome: goodChart}, session.PolicyProceed, nil)
	assert.Equal(t, fieldDate, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, fieldTime, m.focus)
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, fieldCity, m.focus)

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "Seou", m.fields[fieldCity].Value())
}

func TestQuickReplyWithFailedAnswer(t *testing.T) {
	req := &fakeRequester{outcome: goodChart, ok: false}
	m := chattingModel(t, req, nil)

	m, cmd := update(t, m, runes("1"))
	assert.True(t, m.machine.AwaitingAnswer())
	assert.False(t, m.machine.SuggestedQuestionsVisible())

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{convo.SuggestedQuestions[0]}, req.questions)

	m, _ = update(t, m, msgs[0])
	turns := m.machine.State().Turns
	require.Len(t, turns, 3)
	assert.Equal(t, convo.Turn{Text: convo.SuggestedQuestions[0], Author: convo.User}, turns[1])
	assert.Equal(t, convo.Turn{Text: convo.ApologyText, Author: convo.Assistant}, turns[2])
	assert.False(t, m.machine.AwaitingAnswer())

	// digits are plain input once suggestions are gone
	m, _ = update(t, m, runes("2"))
	assert.Equal(t, "2", m.question.Value())
}

func TestTypedQuestion(t *testing.T) {
	req := &fakeRequester{outcome: goodChart, answer: "좋은 인연이 와요", ok: true}
	m := chattingModel(t, req, nil)

	m, _ = update(t, m, runes("연애운 알려줘"))
	m, cmd := update(t, m, keyEnter)
	assert.Empty(t, m.question.Value())

	// enter while waiting does not queue a second question
	m, _ = update(t, m, runes("또"))
	m, blocked := update(t, m, keyEnter)
	assert.Nil(t, blocked)
	assert.Contains(t, m.status, "이전 질문")

	for _, msg := range collect(cmd) {
		m, _ = update(t, m, msg)
	}
	turns := m.machine.State().Turns
	require.Len(t, turns, 3)
	assert.Equal(t, "좋은 인연이 와요", turns[2].Text)
	assert.Contains(t, m.View(), "좋은 인연이 와요")
}

func TestResetDropsStaleChart(t *testing.T) {
	req := &fakeRequester{outcome: goodChart}
	m := newTestModel(t, req, session.PolicyProceed, nil)

	m, cmd := update(t, m, keyEnter)
	stale := collect(cmd)
	require.Len(t, stale, 1)

	m, _ = update(t, m, keyReset)
	assert.Equal(t, session.Collecting, m.machine.Phase())

	m, _ = update(t, m, stale[0])
	assert.Equal(t, session.Collecting, m.machine.Phase())
	assert.Empty(t, m.machine.State().Turns)
}

func TestResetArchivesConversation(t *testing.T) {
	req := &fakeRequester{outcome: goodChart, answer: "a", ok: true}
	arch := &fakeArchiver{}
	m := chattingModel(t, req, arch)

	m, cmd := update(t, m, keyReset)
	assert.Equal(t, session.Collecting, m.machine.Phase())
	assert.Equal(t, "Seoul", m.fields[fieldCity].Value(), "form keeps the last values")

	msgs := collect(cmd)
	require.Len(t, msgs, 1)
	require.Len(t, arch.saved, 1)
	assert.Equal(t, goodChart.Result, arch.saved[0].Chart)
	assert.Len(t, arch.saved[0].Turns, 1)
}

func TestBouncePolicyReturnsToForm(t *testing.T) {
	req := &fakeRequester{outcome: oracle.ChartOutcome{Result: chart.Fallback(), UsedFallback: true}}
	m := newTestModel(t, req, session.PolicyBounce, nil)

	m, cmd := update(t, m, keyEnter)
	for _, msg := range collect(cmd) {
		m, _ = update(t, m, msg)
	}

	assert.Equal(t, session.Collecting, m.machine.Phase())
	assert.True(t, strings.Contains(m.View(), session.BounceAlert))
	assert.Equal(t, fieldCity, m.focus)
}

func TestFallbackProceedShowsStatus(t *testing.T) {
	req := &fakeRequester{outcome: oracle.ChartOutcome{Result: chart.Fallback(), UsedFallback: true}}
	m := chattingModel(t, req, nil)

	assert.True(t, m.machine.State().UsedFallback)
	assert.Contains(t, m.View(), "기본 차트로 진행합니다")
}
