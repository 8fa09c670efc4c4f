// Package search filters a session's messages by text, role and time.
package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/neilberkman/medichat/internal/core/models"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Filters represents parsed filters from a query
type Filters struct {
	Query      string      // Text that must appear in the message
	Role       models.Role // Only messages by this role
	AfterDate  time.Time   // Only messages after this time
	BeforeDate time.Time   // Only messages before this time
	HasAfter   bool
	HasBefore  bool
}

func newParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParseQuery extracts filters from a query string
// Supports:
//   - role:user, role:assistant - filter by author
//   - after:yesterday, since:2024-11-01 - messages after a date
//   - before:2024-11-01 - messages before a date
func ParseQuery(query string, now time.Time) Filters {
	filters := Filters{}
	w := newParser()

	var queryParts []string
	for _, token := range strings.Fields(query) {
		switch {
		case strings.HasPrefix(token, "role:"):
			role := models.Role(strings.TrimPrefix(token, "role:"))
			if role.Valid() {
				filters.Role = role
			}
		case strings.HasPrefix(token, "after:"), strings.HasPrefix(token, "since:"):
			_, dateStr, _ := strings.Cut(token, ":")
			if parsed := parseDate(w, dateStr, now); parsed != nil {
				filters.AfterDate = *parsed
				filters.HasAfter = true
			}
		case strings.HasPrefix(token, "before:"):
			if parsed := parseDate(w, strings.TrimPrefix(token, "before:"), now); parsed != nil {
				filters.BeforeDate = *parsed
				filters.HasBefore = true
			}
		default:
			queryParts = append(queryParts, token)
		}
	}

	filters.Query = strings.Join(queryParts, " ")
	return filters
}

// ParseSince parses a natural language or absolute date, e.g. "yesterday",
// "2 hours ago" or "2024-11-01"
func ParseSince(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if parsed := parseDate(newParser(), s, now); parsed != nil {
		return *parsed, nil
	}
	return time.Time{}, fmt.Errorf("could not understand date %q", s)
}

// parseDate tries the absolute formats first, then natural language
func parseDate(w *when.Parser, dateStr string, now time.Time) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}

	for _, format := range formats {
		if t, err := time.ParseInLocation(format, dateStr, now.Location()); err == nil {
			return &t
		}
	}

	// Dashes stand in for spaces inside a single token: after:last-week
	natural := strings.ReplaceAll(dateStr, "-", " ")
	if result, err := w.Parse(natural, now); err == nil && result != nil {
		return &result.Time
	}

	return nil
}

// Match reports whether msg passes every filter. Messages without a
// timestamp pass date filters.
func (f Filters) Match(msg models.Message) bool {
	if f.Role != "" && msg.Role != f.Role {
		return false
	}
	if !msg.Timestamp.IsZero() {
		if f.HasAfter && msg.Timestamp.Before(f.AfterDate) {
			return false
		}
		if f.HasBefore && !msg.Timestamp.Before(f.BeforeDate) {
			return false
		}
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(msg.Content), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

// Apply returns the messages that match, in order
func (f Filters) Apply(msgs []models.Message) []models.Message {
	out := make([]models.Message, 0, len(msgs))
	for _, m := range msgs {
		if f.Match(m) {
			out = append(out, m)
		}
	}
	return out
}
