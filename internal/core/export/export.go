// Package export renders a session transcript as markdown, JSON or YAML.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/neilberkman/medichat/internal/core/models"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding
type Format string

const (
	Markdown Format = "md"
	JSON     Format = "json"
	YAML     Format = "yaml"
)

// ParseFormat accepts md, markdown, json, yaml or yml
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "yaml", "yml":
		return YAML, nil
	}
	return "", fmt.Errorf("unknown export format %q (want md, json or yaml)", s)
}

// Extension returns the file extension for the format
func (f Format) Extension() string {
	return string(f)
}

// Transcript is one exported session
type Transcript struct {
	SessionID  string    `json:"session_id" yaml:"session_id"`
	Title      string    `json:"title" yaml:"title"`
	ExportedAt time.Time `json:"exported_at" yaml:"exported_at"`
	Messages   []Entry   `json:"messages" yaml:"messages"`
}

// Entry is one exported message. Image bytes are summarized, not embedded.
type Entry struct {
	Role       string     `json:"role" yaml:"role"`
	Content    string     `json:"content" yaml:"content"`
	Timestamp  *time.Time `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
	ImageBytes int        `json:"image_bytes,omitempty" yaml:"image_bytes,omitempty"`
}

// NewTranscript builds a transcript from a session's messages
func NewTranscript(sessionID, title string, msgs []models.Message, now time.Time) Transcript {
	t := Transcript{
		SessionID:  sessionID,
		Title:      title,
		ExportedAt: now,
		Messages:   make([]Entry, 0, len(msgs)),
	}
	for _, m := range msgs {
		e := Entry{
			Role:       string(m.Role),
			Content:    m.Content,
			ImageBytes: len(m.Image),
		}
		if !m.Timestamp.IsZero() {
			ts := m.Timestamp
			e.Timestamp = &ts
		}
		t.Messages = append(t.Messages, e)
	}
	return t
}

// Write encodes t to w in the given format
func Write(w io.Writer, format Format, t Transcript) error {
	switch format {
	case JSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(t)
	case YAML:
		enc := yaml.NewEncoder(w)
		defer func() { _ = enc.Close() }()
		return enc.Encode(t)
	case Markdown:
		return writeMarkdown(w, t)
	}
	return fmt.Errorf("unknown export format %q", format)
}

func writeMarkdown(w io.Writer, t Transcript) error {
	var b strings.Builder

	// Header
	b.WriteString("# ")
	b.WriteString(t.Title)
	b.WriteString("\n\n")

	// Metadata
	fmt.Fprintf(&b, "**Session ID:** `%s`  \n", t.SessionID)
	fmt.Fprintf(&b, "**Exported:** %s  \n", t.ExportedAt.Format("Jan 02, 2006 15:04:05"))
	fmt.Fprintf(&b, "**Messages:** %d\n\n", len(t.Messages))
	b.WriteString("---\n\n")

	for _, m := range t.Messages {
		label := "YOU"
		if m.Role == string(models.RoleAssistant) {
			label = "DOCTOR"
		}

		b.WriteString("**")
		b.WriteString(label)
		b.WriteString("**")
		if m.Timestamp != nil {
			b.WriteString(" _")
			b.WriteString(m.Timestamp.Format("Jan 02, 2006 15:04:05"))
			b.WriteString("_")
		}
		b.WriteString("\n\n")

		if m.ImageBytes > 0 {
			fmt.Fprintf(&b, "_[image attached, %d bytes]_\n\n", m.ImageBytes)
		}

		// Content (no truncation)
		if m.Content != "" {
			b.WriteString(m.Content)
			b.WriteString("\n\n")
		}

		b.WriteString("---\n\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}
