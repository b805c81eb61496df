package ui

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	Stdout io.Writer = os.Stdout
	Stderr io.Writer = os.Stderr
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
	cyan   = color.New(color.FgCyan)
)

func Success(format string, args ...any) {
	green.Fprintf(Stdout, "✓ %s\n", fmt.Sprintf(format, args...))
}

func Error(format string, args ...any) {
	red.Fprintf(Stderr, "✗ %s\n", fmt.Sprintf(format, args...))
}

func Warning(format string, args ...any) {
	yellow.Fprintf(Stderr, "⚠ %s\n", fmt.Sprintf(format, args...))
}

func Info(format string, args ...any) {
	cyan.Fprintf(Stdout, "ℹ %s\n", fmt.Sprintf(format, args...))
}
