package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/neilberkman/medichat/internal/core/api"
	"github.com/neilberkman/medichat/internal/core/db"
	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

// staleScopeAge is how long kept location records survive unused
const staleScopeAge = 30 * 24 * time.Hour

func newClient() *api.Client {
	return api.New(cfg.ServerURL)
}

// locationState is the opened state database and the store for one scope
type locationState struct {
	db    *db.DB
	store *geo.Store
	fresh bool // Scope was generated for this run
}

// openLocationState opens the state database for the --scope scope, or a new
// random one when none was given
func openLocationState() (*locationState, error) {
	database, err := db.New(cfg.StateDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	scope, fresh := scopeID, false
	if scope == "" {
		scope, fresh = uuid.NewString(), true
	}
	logger.Debug("location scope", "scope", scope, "fresh", fresh)

	return &locationState{
		db:    database,
		store: geo.NewStore(database, scope),
		fresh: fresh,
	}, nil
}

// close clears the scope unless it should be kept, prunes long unused
// scopes, and closes the database
func (s *locationState) close(keep bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if !keep {
		if err := s.store.Clear(ctx); err != nil {
			logger.Warn("failed to clear location scope", "scope", s.store.Scope(), "err", err)
		}
	}
	if n, err := s.db.PruneBefore(ctx, time.Now().Add(-staleScopeAge)); err != nil {
		logger.Warn("failed to prune location records", "err", err)
	} else if n > 0 {
		logger.Info("pruned stale location records", "count", n)
	}
	_ = s.db.Close()
}

// confirm asks a y/N question; anything but y or yes is no
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// formatWhen renders a message time for terminal output
func formatWhen(t, now time.Time) string {
	if t.IsZero() {
		return "now"
	}
	if now.Sub(t) < 24*time.Hour {
		return humanize.RelTime(t, now, "ago", "from now")
	}
	return t.Local().Format("2006-01-02 15:04")
}

func roleLabel(r models.Role) string {
	switch r {
	case models.RoleAssistant:
		return "DOCTOR"
	case models.RoleUser:
		return "YOU"
	}
	return strings.ToUpper(string(r))
}

// printMessages writes a transcript in the terminal format
func printMessages(w io.Writer, msgs []models.Message, now time.Time) {
	for _, m := range msgs {
		fmt.Fprintf(w, "[%s] %s\n", roleLabel(m.Role), formatWhen(m.Timestamp, now))
		if len(m.Image) > 0 {
			fmt.Fprintf(w, "(image, %s)\n", humanize.Bytes(uint64(len(m.Image))))
		}
		fmt.Fprintf(w, "%s\n\n", m.Content)
	}
}
