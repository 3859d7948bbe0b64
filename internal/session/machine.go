// Package session holds the state machine that drives one fortune-chart
// conversation: collecting birth data, waiting for the chart, chatting.
//
// A Machine is owned by a single event loop and is not safe for concurrent
// use. Asynchronous results are applied through ApplyChart and ApplyAnswer,
// which drop anything issued under an older generation.
package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
)

type Phase int

const (
	Collecting Phase = iota
	Requesting
	Chatting
)

func (p Phase) String() string {
	switch p {
	case Collecting:
		return "collecting"
	case Requesting:
		return "requesting"
	case Chatting:
		return "chatting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// FailurePolicy decides what a failed chart request does to the session.
type FailurePolicy int

const (
	// PolicyProceed substitutes the fallback chart and continues to Chatting.
	PolicyProceed FailurePolicy = iota
	// PolicyBounce returns to Collecting and raises an alert.
	PolicyBounce
)

func (p FailurePolicy) String() string {
	if p == PolicyBounce {
		return "bounce"
	}
	return "proceed"
}

// ParsePolicy accepts "proceed" or "bounce"; empty means proceed.
func ParsePolicy(s string) (FailurePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "proceed":
		return PolicyProceed, nil
	case "bounce":
		return PolicyBounce, nil
	default:
		return PolicyProceed, fmt.Errorf("unknown failure policy %q", s)
	}
}

// BounceAlert is shown when PolicyBounce sends the user back to the form.
const BounceAlert = "차트 데이터를 불러오지 못했어요. 입력을 확인하고 다시 시도해 주세요."

var (
	ErrBusy           = errors.New("chart request already in flight")
	ErrNotCollecting  = errors.New("birth data can only change while collecting")
	ErrNotChatting    = errors.New("questions are only accepted while chatting")
	ErrAwaitingAnswer = errors.New("previous question is still being answered")
)

// Ticket describes a chart request the caller must issue.
type Ticket struct {
	Generation uint64
	Query      chart.BirthQuery
}

// AskTicket describes a question request the caller must issue.
type AskTicket struct {
	Generation uint64
	Question   string
	Planets    []chart.Placement
}

// State is a read-only snapshot of the session.
type State struct {
	Phase        Phase
	Query        chart.BirthQuery
	Chart        *chart.Result
	Turns        []convo.Turn
	Generation   uint64
	UsedFallback bool
	Alert        string
}

type Machine struct {
	policy       FailurePolicy
	phase        Phase
	query        chart.BirthQuery
	chart        *chart.Result
	log          convo.Log
	generation   uint64
	usedFallback bool
	alert        string
}

func New(policy FailurePolicy) *Machine {
	return &Machine{
		policy:     policy,
		phase:      Collecting,
		query:      chart.DefaultQuery(),
		generation: 1,
	}
}

func (m *Machine) Phase() Phase          { return m.phase }
func (m *Machine) Generation() uint64    { return m.generation }
func (m *Machine) Policy() FailurePolicy { return m.policy }
func (m *Machine) Query() chart.BirthQuery {
	return m.query
}

// SetQuery replaces the birth data. Only allowed while collecting.
func (m *Machine) SetQuery(q chart.BirthQuery) error {
	if m.phase != Collecting {
		return ErrNotCollecting
	}
	m.query = q
	return nil
}

// Submit freezes the query and moves to Requesting.
func (m *Machine) Submit() (Ticket, error) {
	switch m.phase {
	case Requesting:
		return Ticket{}, ErrBusy
	case Chatting:
		return Ticket{}, ErrNotCollecting
	}
	q := m.query.Normalize()
	if err := q.Validate(); err != nil {
		return Ticket{}, err
	}
	m.query = q
	m.alert = ""
	m.phase = Requesting
	return Ticket{Generation: m.generation, Query: q}, nil
}

// ApplyChart settles a chart request. It reports whether the result was
// applied; stale or unexpected results are dropped.
func (m *Machine) ApplyChart(gen uint64, result chart.Result, usedFallback bool) bool {
	if gen != m.generation || m.phase != Requesting {
		return false
	}
	if !result.Usable() {
		result = chart.Fallback()
		usedFallback = true
	}

	if usedFallback && m.policy == PolicyBounce {
		m.phase = Collecting
		m.alert = BounceAlert
		m.generation++
		return true
	}

	accepted := result.Clone()
	m.chart = &accepted
	m.usedFallback = usedFallback
	m.phase = Chatting
	m.log.Reset()
	// the log is empty, seeding cannot fail
	_ = m.log.SeedWelcome(accepted.Summary)
	return true
}

// Ask records a user question and opens the pending assistant turn.
func (m *Machine) Ask(question string) (AskTicket, error) {
	if m.phase != Chatting {
		return AskTicket{}, ErrNotChatting
	}
	if m.log.HasPending() {
		return AskTicket{}, ErrAwaitingAnswer
	}
	question = strings.TrimSpace(question)
	if !m.log.AppendUser(question) {
		return AskTicket{}, convo.ErrEmptyText
	}
	if err := m.log.BeginAssistantResponse(); err != nil {
		return AskTicket{}, err
	}
	return AskTicket{
		Generation: m.generation,
		Question:   question,
		Planets:    m.chart.Clone().Planets,
	}, nil
}

// ApplyAnswer resolves the pending turn. ok=false yields the apology turn.
func (m *Machine) ApplyAnswer(gen uint64, answer string, ok bool) bool {
	if gen != m.generation || m.phase != Chatting {
		return false
	}
	return m.log.ResolveAssistantResponse(answer, ok) == nil
}

// Reset discards the chart and conversation and returns to Collecting.
// The last entered birth data stays in the form.
func (m *Machine) Reset() {
	m.phase = Collecting
	m.chart = nil
	m.log.Reset()
	m.usedFallback = false
	m.alert = ""
	m.generation++
}

func (m *Machine) SuggestedQuestionsVisible() bool {
	return m.phase == Chatting && m.log.SuggestedQuestionsVisible()
}

func (m *Machine) AwaitingAnswer() bool {
	return m.log.HasPending()
}

func (m *Machine) State() State {
	s := State{
		Phase:        m.phase,
		Query:        m.query,
		Turns:        m.log.Turns(),
		Generation:   m.generation,
		UsedFallback: m.usedFallback,
		Alert:        m.alert,
	}
	if m.chart != nil {
		c := m.chart.Clone()
		s.Chart = &c
	}
	return s
}
