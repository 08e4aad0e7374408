package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Palette
var (
	colorPrimary      = lipgloss.Color("#3B82F6") // clock blue
	colorPrimaryLight = lipgloss.Color("#60A5FA")
	colorText         = lipgloss.Color("#F3F4F6")
	colorMuted        = lipgloss.Color("240")

	colorSuccess = lipgloss.Color("#22C55E")
	colorWarning = lipgloss.Color("#F59E0B")
	colorError   = lipgloss.Color("#EF4444")
)

var (
	successStyle = lipgloss.NewStyle().Foreground(colorSuccess).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle  = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(colorPrimaryLight).Bold(true)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText)
	pinnedStyle  = lipgloss.NewStyle().Foreground(colorWarning)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠"
	iconPinned  = "★"
)

// Tests force terminal detection through testIsTTYOverride.
var (
	testIsTTYOverride *bool
	testIsTTYMutex    sync.Mutex
)

// isTTY reports whether stdout is a terminal.
func isTTY() bool {
	testIsTTYMutex.Lock()
	override := testIsTTYOverride
	testIsTTYMutex.Unlock()
	if override != nil {
		return *override
	}
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// style renders s with st on a terminal and leaves it plain otherwise.
func style(st lipgloss.Style, s string) string {
	if isTTY() {
		return st.Render(s)
	}
	return s
}

func printStyled(w io.Writer, icon string, st lipgloss.Style, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", style(st, icon), fmt.Sprintf(format, args...))
}

func printSuccess(w io.Writer, format string, args ...any) {
	printStyled(w, iconSuccess, successStyle, format, args...)
}

func printWarning(w io.Writer, format string, args ...any) {
	printStyled(w, iconWarning, warningStyle, format, args...)
}

func printMuted(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, style(mutedStyle, fmt.Sprintf(format, args...)))
}

// printField prints an aligned "label: value" line.
func printField(w io.Writer, label, value string) {
	fmt.Fprintf(w, "%s %s\n", style(labelStyle, fmt.Sprintf("%-10s", label+":")), style(valueStyle, value))
}

// renderMarkdown renders note content with glamour on a terminal.
func renderMarkdown(content string) string {
	if !isTTY() || !hasMarkdown(content) {
		return content
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return content
	}
	rendered, err := renderer.Render(content)
	if err != nil {
		return content
	}
	return strings.TrimSpace(rendered)
}

// hasMarkdown reports whether content looks like markdown, most specific
// markers first.
func hasMarkdown(content string) bool {
	for _, marker := range []string{"```", "## ", "# ", "**", "1. ", "- ", "* ", "](http", "`"} {
		if strings.Contains(content, marker) {
			return true
		}
	}
	return false
}
