// Package chathistory tokenizes the plain-text history blob that the backend
// replays over the live connection.
//
// The blob is a sequence of turns. A turn starts with a role prefix at the
// beginning of a line and continues over every following line that does not
// start with a prefix:
//
//	사용자: how do I take this?
//	의사: twice a day,
//	after meals.
//
// Older backends wrote the assistant prefix as "AI: ", so both assistant
// prefixes are accepted.
package chathistory

import (
	"iter"
	"strings"

	"github.com/neilberkman/medichat/internal/core/models"
)

// Line prefixes that open a turn
const (
	UserPrefix            = "사용자: "
	AssistantPrefix       = "의사: "
	LegacyAssistantPrefix = "AI: "
)

var prefixes = []struct {
	prefix string
	role   models.Role
}{
	{UserPrefix, models.RoleUser},
	{AssistantPrefix, models.RoleAssistant},
	{LegacyAssistantPrefix, models.RoleAssistant},
}

// Turn is one role block of a history blob
type Turn struct {
	Role models.Role
	Text string
}

// Turns lazily yields the turns of history in order. Lines before the first
// prefix are dropped.
func Turns(history string) iter.Seq[Turn] {
	return func(yield func(Turn) bool) {
		history = strings.TrimSpace(history)
		if history == "" {
			return
		}

		var role models.Role
		var block []string

		for _, line := range strings.Split(history, "\n") {
			line = strings.TrimSuffix(line, "\r")

			if r, rest, ok := cutPrefix(line); ok {
				if role != "" {
					if !yield(Turn{Role: role, Text: strings.Join(block, "\n")}) {
						return
					}
				}
				role = r
				block = []string{rest}
				continue
			}

			if role != "" {
				block = append(block, line)
			}
		}

		if role != "" {
			yield(Turn{Role: role, Text: strings.Join(block, "\n")})
		}
	}
}

// Parse collects every turn of history
func Parse(history string) []Turn {
	var turns []Turn
	for t := range Turns(history) {
		turns = append(turns, t)
	}
	return turns
}

func cutPrefix(line string) (models.Role, string, bool) {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(line, p.prefix); ok {
			return p.role, rest, true
		}
	}
	return "", "", false
}
