package chart

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"

	// MinCityRunes is the shortest city name accepted on submit, after trimming.
	MinCityRunes = 1
)

var ErrInvalidQuery = errors.New("invalid birth query")

// BirthQuery is the birth data the user submits. Fields keep the wire format.
type BirthQuery struct {
	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // HH:MM, local clock time
	City string `json:"city"`
}

// DefaultQuery returns the values the form starts with.
func DefaultQuery() BirthQuery {
	return BirthQuery{Date: "1995-09-22", Time: "14:30", City: "Seoul"}
}

func (q BirthQuery) Normalize() BirthQuery {
	return BirthQuery{
		Date: strings.TrimSpace(q.Date),
		Time: strings.TrimSpace(q.Time),
		City: strings.TrimSpace(q.City),
	}
}

// Validate checks the query at the Collecting -> Requesting boundary.
func (q BirthQuery) Validate() error {
	q = q.Normalize()
	if _, err := time.Parse(DateLayout, q.Date); err != nil {
		return fmt.Errorf("%w: date %q is not YYYY-MM-DD", ErrInvalidQuery, q.Date)
	}
	if _, err := time.Parse(TimeLayout, q.Time); err != nil {
		return fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidQuery, q.Time)
	}
	if utf8.RuneCountInString(q.City) < MinCityRunes {
		return fmt.Errorf("%w: city is empty", ErrInvalidQuery)
	}
	return nil
}

// Placement is one celestial body in a chart. Names may repeat within a chart.
type Placement struct {
	Name  string `json:"name"`
	Sign  string `json:"sign"`
	House string `json:"house"`
}

type Result struct {
	Summary string      `json:"summary"`
	Planets []Placement `json:"planets"`
}

// Usable reports whether the result can be accepted into a session.
func (r Result) Usable() bool {
	return len(r.Planets) > 0
}

func (r Result) Clone() Result {
	out := Result{Summary: r.Summary}
	if r.Planets != nil {
		out.Planets = make([]Placement, len(r.Planets))
		copy(out.Planets, r.Planets)
	}
	return out
}

// FallbackSummary is shown verbatim when the chart service cannot be used.
const FallbackSummary = "별들의 신호가 잠시 흐려졌어요. 대신 미리 준비된 기본 차트로 이야기를 시작할게요. 태양은 처녀자리 10하우스에서 꼼꼼함과 책임감을, 달은 물고기자리 4하우스에서 깊은 감수성을 비추고 있어요."

// Fallback returns the predefined chart used when the service fails.
func Fallback() Result {
	return Result{
		Summary: FallbackSummary,
		Planets: []Placement{
			{Name: "Sun", Sign: "Virgo", House: "10 House"},
			{Name: "Moon", Sign: "Pisces", House: "4 House"},
			{Name: "Mercury", Sign: "Libra", House: "11 House"},
			{Name: "Venus", Sign: "Leo", House: "9 House"},
			{Name: "Mars", Sign: "Scorpio", House: "12 House"},
			{Name: "Jupiter", Sign: "Sagittarius", House: "1 House"},
			{Name: "Saturn", Sign: "Pisces", House: "4 House"},
			{Name: "Uranus", Sign: "Capricorn", House: "2 House"},
			{Name: "Neptune", Sign: "Capricorn", House: "2 House"},
			{Name: "Pluto", Sign: "Scorpio", House: "12 House"},
		},
	}
}
