package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"storyforge/internal/project"
)

var titleCaser = cases.Title(language.English)

// displayLabel turns snake_case identifiers into human-readable labels.
func displayLabel(value string) string {
	return titleCaser.String(strings.ReplaceAll(value, "_", " "))
}

// stdoutIsTTY reports whether tables should be rendered; piped output gets
// plain tab-separated lines instead.
func stdoutIsTTY() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// printRows renders a table on a terminal and tab-separated plain text
// otherwise.
func printRows(headers []string, rows [][]string, aligns []columnAlignment) {
	if stdoutIsTTY() {
		fmt.Println(renderTable(headers, rows, aligns))
		return
	}
	for _, row := range rows {
		fmt.Println(strings.Join(row, "\t"))
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func parseKind(value string) (project.Kind, error) {
	switch project.Kind(strings.ToLower(strings.TrimSpace(value))) {
	case project.KindCharacter:
		return project.KindCharacter, nil
	case project.KindScene:
		return project.KindScene, nil
	case project.KindProp:
		return project.KindProp, nil
	case project.KindFrame:
		return project.KindFrame, nil
	}
	return "", fmt.Errorf("unknown entity kind %q (character, scene, prop, frame)", value)
}
