package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/sakif/ud-notes/internal/apperror"
	"github.com/sakif/ud-notes/internal/core"
	"github.com/sakif/ud-notes/internal/model"
)

const shortIDLen = 8

var (
	headStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#25b067"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// renderView prints the screen for v. now anchors the relative timestamps.
func renderView(w io.Writer, v core.View, now time.Time) {
	if !v.SignedIn {
		fmt.Fprintln(w, dimStyle.Render("Not signed in. Use \"signup <email>\" or \"signin <email>\"."))
		renderErr(w, v.Err)
		return
	}

	fmt.Fprintf(w, "Signed in as %s\n", v.Email)
	renderErr(w, v.Err)

	fmt.Fprintf(w, "\n%s\n", headStyle.Render(v.ListHeading))
	switch v.NoteState {
	case core.StateLoading:
		fmt.Fprintln(w, "  loading...")
		return
	case core.StateError:
		fmt.Fprintln(w, "  notes could not be loaded (try \"refresh\")")
		return
	}
	if len(v.Notes) == 0 {
		fmt.Fprintln(w, "  no notes yet")
		return
	}
	for _, n := range v.Notes {
		fmt.Fprintf(w, "  %s\n", noteLine(n, now))
		for _, line := range strings.Split(n.Content, "\n") {
			fmt.Fprintf(w, "      %s\n", line)
		}
	}
}

func renderErr(w io.Writer, err error) {
	if err != nil {
		fmt.Fprintln(w, errorStyle.Render("error: "+apperror.Message(err)))
	}
}

func noteLine(n model.Note, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", shortID(n.ID), n.Title)
	if n.Subject != nil {
		fmt.Fprintf(&b, " (%s)", n.Subject.Name)
	}
	visibility := "private"
	if n.IsPublic {
		visibility = "public"
	}
	meta := " · " + visibility
	if !n.CreatedAt.IsZero() {
		meta += " · " + humanize.RelTime(n.CreatedAt, now, "ago", "from now")
	}
	b.WriteString(dimStyle.Render(meta))
	return b.String()
}

func renderSubjects(w io.Writer, v core.View) {
	if !v.SignedIn {
		fmt.Fprintln(w, "Not signed in.")
		return
	}
	if len(v.Subjects) == 0 {
		fmt.Fprintln(w, "No subjects yet. Create one with \"subject <name> [description]\".")
		return
	}
	for _, s := range v.Subjects {
		marker := " "
		if v.Selected != nil && v.Selected.ID == s.ID {
			marker = "*"
		}
		if s.Description != "" {
			fmt.Fprintf(w, "%s %s: %s\n", marker, s.Name, s.Description)
		} else {
			fmt.Fprintf(w, "%s %s\n", marker, s.Name)
		}
	}
}

func shortID(id uuid.UUID) string {
	return id.String()[:shortIDLen]
}

// resolveNoteID accepts a full note ID or a prefix matching exactly one of
// the listed notes.
func resolveNoteID(notes []model.Note, arg string) (uuid.UUID, error) {
	if id, err := uuid.Parse(arg); err == nil {
		return id, nil
	}
	arg = strings.ToLower(arg)
	var matches []uuid.UUID
	for _, n := range notes {
		if strings.HasPrefix(n.ID.String(), arg) {
			matches = append(matches, n.ID)
		}
	}
	switch len(matches) {
	case 0:
		return uuid.Nil, apperror.NotFound("note", arg)
	case 1:
		return matches[0], nil
	default:
		return uuid.Nil, apperror.ValidationFailed("id", fmt.Sprintf("%q matches %d notes", arg, len(matches)))
	}
}
