package convo

import (
	"errors"
	"strings"
)

type Author int

const (
	User Author = iota
	Assistant
)

func (a Author) String() string {
	switch a {
	case User:
		return "user"
	case Assistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Turn is one message in the conversation. Pending marks the
// "composing" placeholder shown while an answer is outstanding.
type Turn struct {
	Text    string
	Author  Author
	Pending bool
}

const (
	// ApologyText replaces an answer that could not be obtained.
	ApologyText = "죄송해요, 지금은 별들의 목소리를 듣기 어려워요. 잠시 후 다시 물어봐 주세요."

	PendingText = "별들의 이야기를 읽는 중..."

	welcomePrefix = "당신의 별자리 차트를 읽었어요.\n\n"
	welcomeSuffix = "\n\n무엇이든 물어보세요."
)

// SuggestedQuestions are offered as quick replies right after the welcome turn.
var SuggestedQuestions = []string{
	"연애운 알려줘",
	"직업운은 어때?",
	"재물운이 궁금해",
	"건강운 알려줘",
}

var (
	ErrAlreadySeeded = errors.New("conversation already started")
	ErrPendingExists = errors.New("an answer is already pending")
	ErrNoPending     = errors.New("no pending answer")
	ErrEmptyText     = errors.New("empty message")
)

// Log is the ordered conversation history. Turns are only appended, except
// for the in-place resolve of the single pending turn.
type Log struct {
	turns []Turn
}

// WelcomeText builds the first assistant turn around a chart summary.
func WelcomeText(summary string) string {
	return welcomePrefix + strings.TrimSpace(summary) + welcomeSuffix
}

func (l *Log) SeedWelcome(summary string) error {
	if len(l.turns) > 0 {
		return ErrAlreadySeeded
	}
	l.turns = append(l.turns, Turn{Text: WelcomeText(summary), Author: Assistant})
	return nil
}

// AppendUser appends a user turn. It reports false and does nothing when
// text is blank.
func (l *Log) AppendUser(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	l.turns = append(l.turns, Turn{Text: text, Author: User})
	return true
}

func (l *Log) BeginAssistantResponse() error {
	if l.HasPending() {
		return ErrPendingExists
	}
	l.turns = append(l.turns, Turn{Text: PendingText, Author: Assistant, Pending: true})
	return nil
}

// ResolveAssistantResponse replaces the pending turn. When ok is false or the
// answer is blank the apology text is used instead.
func (l *Log) ResolveAssistantResponse(text string, ok bool) error {
	idx := l.pendingIndex()
	if idx < 0 {
		return ErrNoPending
	}
	text = strings.TrimSpace(text)
	if !ok || text == "" {
		text = ApologyText
	}
	l.turns[idx] = Turn{Text: text, Author: Assistant}
	return nil
}

// SuggestedQuestionsVisible is derived from the log alone: only the settled
// welcome turn exists. Turns are never removed, so once the user speaks it
// stays false until Reset.
func (l *Log) SuggestedQuestionsVisible() bool {
	return len(l.turns) == 1 && l.turns[0].Author == Assistant && !l.turns[0].Pending
}

func (l *Log) HasPending() bool {
	return l.pendingIndex() >= 0
}

func (l *Log) pendingIndex() int {
	for i := len(l.turns) - 1; i >= 0; i-- {
		if l.turns[i].Pending {
			return i
		}
	}
	return -1
}

// Turns returns a copy of the history in insertion order.
func (l *Log) Turns() []Turn {
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

func (l *Log) Len() int {
	return len(l.turns)
}

func (l *Log) Reset() {
	l.turns = nil
}
