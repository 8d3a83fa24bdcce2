package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
)

// checkState is the outcome of one status check. Only stateFail makes the
// status command exit non-zero.
type checkState int

const (
	stateInfo checkState = iota
	statePass
	stateWarn
	stateFail
)

func (s checkState) String() string {
	switch s {
	case statePass:
		return "OK"
	case stateWarn:
		return "WARN"
	case stateFail:
		return "FAIL"
	default:
		return "INFO"
	}
}

func (s checkState) colors() text.Colors {
	switch s {
	case statePass:
		return text.Colors{text.FgGreen}
	case stateWarn:
		return text.Colors{text.FgYellow}
	case stateFail:
		return text.Colors{text.FgRed, text.Bold}
	default:
		return text.Colors{text.FgBlue}
	}
}

type statusRow struct {
	label  string
	state  checkState
	detail string
}

type statusSection struct {
	title string
	rows  []statusRow
}

func (s *statusSection) add(label string, state checkState, detail string) {
	s.rows = append(s.rows, statusRow{label: label, state: state, detail: detail})
}

// statusReport collects the sections printed by `vidaq status`.
type statusReport struct {
	sections []*statusSection
}

func (r *statusReport) section(title string) *statusSection {
	sec := &statusSection{title: title}
	r.sections = append(r.sections, sec)
	return sec
}

func (r *statusReport) failures() int {
	count := 0
	for _, sec := range r.sections {
		for _, row := range sec.rows {
			if row.state == stateFail {
				count++
			}
		}
	}
	return count
}

func (r *statusReport) render(colorize bool) string {
	var b strings.Builder
	for i, sec := range r.sections {
		if i > 0 {
			b.WriteString("\n")
		}
		header := "== " + sec.title + " =="
		if colorize {
			header = text.Colors{text.FgBlue, text.Bold}.Sprint(header)
		}
		b.WriteString(header + "\n")

		width := 0
		for _, row := range sec.rows {
			width = max(width, len(row.label)+1)
		}
		for _, row := range sec.rows {
			state := "[" + row.state.String() + "]"
			if colorize {
				state = row.state.colors().Sprint(state)
			}
			line := fmt.Sprintf("  %-*s %s", width, row.label+":", state)
			if row.detail != "" {
				line += " " + row.detail
			}
			b.WriteString(line + "\n")
		}
	}
	return b.String()
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())
}
