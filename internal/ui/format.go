// Package ui formats notes for terminal output.
package ui

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/starford/journal/internal/models"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// folderColors maps palette tokens onto terminal colours.
var folderColors = map[string]color.Attribute{
	models.ColorBlue:       color.FgBlue,
	models.ColorGreen:      color.FgGreen,
	models.ColorPurple:     color.FgMagenta,
	models.ColorRed:        color.FgRed,
	models.ColorYellow:     color.FgYellow,
	models.ColorPink:       color.FgHiMagenta,
	models.ColorIndigo:     color.FgHiBlue,
	models.ColorOrange:     color.FgHiYellow,
	models.ColorUnassigned: color.FgWhite,
}

// FolderLabel renders the folder name in its palette colour.
func FolderLabel(f models.Folder) string {
	attr, ok := folderColors[f.Color]
	if !ok {
		attr = color.FgWhite
	}
	return color.New(attr).Sprint(f.Name)
}

// FormatNoteListItem renders one line group per note: id prefix, title,
// folder, tags and update time.
func FormatNoteListItem(note models.Note, folder models.Folder) string {
	var sb strings.Builder

	idPrefix := note.ID
	if len(idPrefix) > 8 {
		idPrefix = idPrefix[:8]
	}
	sb.WriteString(fmt.Sprintf("  %s  %s  %s\n", faint(idPrefix), bold(note.Title), FolderLabel(folder)))

	if len(note.Tags) > 0 {
		sb.WriteString(fmt.Sprintf("            %s %s\n", faint("Tags:"), cyan(strings.Join(note.Tags, ", "))))
	}

	sb.WriteString(fmt.Sprintf("            %s %s\n",
		faint("Updated:"),
		faint(note.UpdatedAt.Format("2006-01-02 15:04"))))

	return sb.String()
}

// FormatFolderList renders folders with their note counts.
func FormatFolderList(folders []models.Folder, counts map[string]int) string {
	var sb strings.Builder
	for _, f := range folders {
		sb.WriteString(fmt.Sprintf("  %s %s\n", FolderLabel(f), faint(fmt.Sprintf("(%d)", counts[f.ID]))))
	}
	return sb.String()
}
