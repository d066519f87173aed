package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// summaryLine renders the status of one checked document.
func summaryLine(r checkResult, failOnWarnings bool) string {
	if r.err != nil {
		return fmt.Sprintf("%s %s: %v", failStyle.Render("FAIL"), r.path, r.err)
	}

	errs, warns := len(r.report.Errors()), len(r.report.Warnings())
	status := okStyle.Render("ok  ")
	if r.failed(failOnWarnings) {
		status = failStyle.Render("FAIL")
	}

	line := fmt.Sprintf("%s %s", status, r.path)
	if errs > 0 {
		line += " " + failStyle.Render(plural(errs, "error"))
	}
	if warns > 0 {
		line += " " + warnStyle.Render(plural(warns, "warning"))
	}
	if r.cached {
		line += " " + dimStyle.Render("(cached)")
	}
	return line
}
