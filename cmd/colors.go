package cmd

import (
	"strings"

	"github.com/fatih/color"
)

var (
	colorSuccess = color.New(color.FgGreen).SprintFunc()
	colorInfo    = color.New(color.FgCyan).SprintFunc()
	colorWarn    = color.New(color.FgYellow).SprintFunc()
	colorError   = color.New(color.FgRed).SprintFunc()
)

// formatGradeWithColor colours a letter grade: A green, B/C yellow, others red.
func formatGradeWithColor(grade string) string {
	switch {
	case grade == "":
		return "-"
	case strings.HasPrefix(strings.ToUpper(grade), "A"):
		return colorSuccess(grade)
	case strings.HasPrefix(strings.ToUpper(grade), "B"), strings.HasPrefix(strings.ToUpper(grade), "C"):
		return colorWarn(grade)
	default:
		return colorError(grade)
	}
}

func formatStatusWithColor(status string) string {
	switch strings.ToLower(status) {
	case "ok", "success", "pass":
		return colorSuccess(status)
	case "error", "fail", "failed":
		return colorError(status)
	default:
		return status
	}
}
