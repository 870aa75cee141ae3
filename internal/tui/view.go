package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/meltforce/fitrun/internal/session"
)

var (
	colorActive  = lipgloss.Color("#8ec07c")
	colorRest    = lipgloss.Color("#83a598")
	colorWarn    = lipgloss.Color("#fabd2f")
	colorError   = lipgloss.Color("#fb4934")
	colorDim     = lipgloss.Color("#928374")
	colorHeader  = lipgloss.Color("#fe8019")
	titleStyle   = lipgloss.NewStyle().Foreground(colorHeader).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	clockStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	exerciseName = lipgloss.NewStyle().Bold(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(colorDim).Padding(0, 2)
)

// FormatClock renders seconds as m:ss.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

func phaseLabel(st session.State) (string, lipgloss.Color) {
	switch st.Phase {
	case session.PhaseNotStarted:
		return "READY", colorDim
	case session.PhaseCountingDown:
		return "GET READY", colorWarn
	case session.PhaseActive:
		if st.Paused {
			return "PAUSED", colorWarn
		}
		return "WORK", colorActive
	case session.PhaseResting:
		if st.Paused {
			return "PAUSED", colorWarn
		}
		return "REST", colorRest
	case session.PhaseCompleted:
		return "DONE", colorActive
	case session.PhaseQuit:
		return "QUIT", colorError
	}
	return st.Phase.String(), colorDim
}

func (m *Model) View() string {
	if m.quitting && m.sess.State().Phase != session.PhaseCompleted {
		return ""
	}
	st := m.sess.State()
	var b strings.Builder

	fmt.Fprintf(&b, "%s  %s\n\n",
		titleStyle.Render(m.plan.Name),
		dimStyle.Render(fmt.Sprintf("exercise %d/%d", st.ExerciseIndex+1, len(m.plan.Exercises))))

	if st.Phase == session.PhaseCompleted {
		b.WriteString(m.summaryView(st))
		return b.String()
	}

	label, color := phaseLabel(st)
	clock := FormatClock(st.TimeLeft)
	if st.Phase == session.PhaseCountingDown {
		clock = fmt.Sprintf("%d", st.LeadIn)
	}
	b.WriteString(clockStyle.Foreground(color).Render(label + "  " + clock))
	b.WriteString("\n\n")

	b.WriteString(boxStyle.Render(m.exerciseView(st)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s\n\n", dimStyle.Render("elapsed "+FormatClock(st.TotalElapsed)))

	if m.confirmQuit {
		b.WriteString(lipgloss.NewStyle().Foreground(colorError).Render("Quit workout? Progress will not be saved."))
		b.WriteString("\n")
		b.WriteString(m.help.View(confirmHelp{m.keys}))
		return b.String()
	}
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

func (m *Model) exerciseView(st session.State) string {
	var b strings.Builder
	if st.Phase == session.PhaseResting {
		next, ok := m.sess.NextExercise()
		if ok {
			fmt.Fprintf(&b, "Up next: %s\n", exerciseName.Render(next.Name))
			fmt.Fprintf(&b, "%s", dimStyle.Render(FormatClock(next.Duration)))
		}
		return b.String()
	}

	ex := m.sess.Exercise()
	b.WriteString(exerciseName.Render(ex.Name))
	if ex.Sets != nil && ex.Reps != nil {
		fmt.Fprintf(&b, "  %s", dimStyle.Render(fmt.Sprintf("%d x %d", *ex.Sets, *ex.Reps)))
	}
	b.WriteString("\n")
	if ex.Description != "" {
		fmt.Fprintf(&b, "%s\n", ex.Description)
	}
	if len(ex.TargetMuscles) > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render("targets: "+strings.Join(ex.TargetMuscles, ", ")))
	}
	for _, tip := range ex.Tips {
		fmt.Fprintf(&b, "- %s\n", tip)
	}
	if next, ok := m.sess.NextExercise(); ok {
		fmt.Fprintf(&b, "%s", dimStyle.Render("next: "+next.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m *Model) summaryView(st session.State) string {
	var b strings.Builder
	b.WriteString(clockStyle.Foreground(colorActive).Render("Workout complete"))
	b.WriteString("\n\n")
	lines := []string{
		fmt.Sprintf("time      %s", FormatClock(st.TotalElapsed)),
		fmt.Sprintf("exercises %d", len(m.plan.Exercises)),
	}
	if m.completion != nil {
		lines = append(lines, fmt.Sprintf("calories  ~%d", m.completion.CaloriesEstimate))
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n")

	if status := m.recordStatus(); status != "" {
		style := dimStyle
		if m.recordErr != nil {
			style = lipgloss.NewStyle().Foreground(colorWarn)
		}
		b.WriteString(style.Render(status))
		b.WriteString("\n")
	}
	if !m.recording {
		b.WriteString(dimStyle.Render("press any key to exit"))
		b.WriteString("\n")
	}
	return b.String()
}
