package render

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/oracle-destiny/internal/chart"
	"github.com/Zuo-Peng/oracle-destiny/internal/convo"
)

const (
	colorReset  = "\033[0m"
	colorUser   = "\033[1;34m" // bold blue
	colorOracle = "\033[1;33m" // bold yellow
	colorDim    = "\033[2m"
	colorPlanet = "\033[1;33m"
)

type Options struct {
	Width int  // wrap width (0 = no wrap)
	Color bool // emit ANSI colors
}

func (o Options) paint(color, s string) string {
	if !o.Color {
		return s
	}
	return color + s + colorReset
}

// indentLines prepends each line of text with the given prefix.
func indentLines(text, prefix string) string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}

// wrapLine breaks a single line into multiple lines that fit within maxWidth
// visible columns, skipping ANSI escape sequences when measuring width.
// Hangul and other wide glyphs count as two columns.
func wrapLine(line string, maxWidth int) []string {
	if maxWidth <= 0 {
		return []string{line}
	}

	var result []string
	var cur strings.Builder
	visW := 0

	i := 0
	for i < len(line) {
		// check for ANSI escape sequence: ESC[ ... m
		if i+1 < len(line) && line[i] == '\033' && line[i+1] == '[' {
			j := i + 2
			for j < len(line) && line[j] != 'm' {
				j++
			}
			if j < len(line) {
				j++ // include 'm'
			}
			cur.WriteString(line[i:j])
			i = j
			continue
		}

		r, size := utf8.DecodeRuneInString(line[i:])
		rw := runewidth.RuneWidth(r)

		if visW+rw > maxWidth {
			result = append(result, cur.String())
			cur.Reset()
			visW = 0
		}

		cur.WriteRune(r)
		visW += rw
		i += size
	}

	if cur.Len() > 0 {
		result = append(result, cur.String())
	}

	if len(result) == 0 {
		return []string{""}
	}
	return result
}

// Transcript renders the conversation in insertion order.
func Transcript(turns []convo.Turn, opts Options) string {
	var b strings.Builder
	writeLine := func(s string) {
		for _, wl := range wrapLine(s, opts.Width) {
			b.WriteString(wl)
			b.WriteString("\n")
		}
	}

	for i, t := range turns {
		if i > 0 {
			writeLine("")
		}

		var label string
		switch t.Author {
		case convo.User:
			label = opts.paint(colorUser, "나")
		default:
			label = opts.paint(colorOracle, "오라클")
		}
		writeLine(label + " >")

		text := t.Text
		if t.Pending {
			text = opts.paint(colorDim, text)
		}
		for _, tl := range strings.Split(indentLines(text, "  "), "\n") {
			writeLine(tl)
		}
	}
	return b.String()
}

// Planets renders one line per placement: name, sign, house.
func Planets(planets []chart.Placement, opts Options) string {
	if len(planets) == 0 {
		return ""
	}
	nameW := 0
	for _, p := range planets {
		if w := runewidth.StringWidth(p.Name); w > nameW {
			nameW = w
		}
	}

	var b strings.Builder
	for _, p := range planets {
		name := runewidth.FillRight(p.Name, nameW)
		fmt.Fprintf(&b, "%s  %s  %s\n", opts.paint(colorPlanet, name), p.Sign, opts.paint(colorDim, p.House))
	}
	return b.String()
}

// Truncate shortens s to width visible columns.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
