package models

import "time"

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the known roles
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single rendered chat message. Messages have no stable identity;
// ordering is append order in the display.
type Message struct {
	Role      Role
	Content   string
	Image     []byte // User-authored only
	Timestamp time.Time
}

// HistoryMessage is one entry of GET /api/sessions/{id}/messages
type HistoryMessage struct {
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// ToMessage converts a history entry into a display message
func (h HistoryMessage) ToMessage() Message {
	return Message{
		Role:      h.Role,
		Content:   h.Content,
		Timestamp: ParseTimestamp(h.Timestamp),
	}
}

var timestampFormats = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses the backend's timestamp formats. Unparseable or empty
// values yield the zero time, which renders as "now".
func ParseTimestamp(ts string) time.Time {
	if ts == "" {
		return time.Time{}
	}
	// Zoneless values are the backend's local wall clock
	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, ts, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
