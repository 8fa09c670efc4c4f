package cli

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// spinner shows a spinning animation on stderr while send waits for a reply
type spinner struct {
	w       io.Writer
	message string
	frame   time.Duration

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// newSpinner returns nil when w is not a terminal
func newSpinner(w io.Writer, message string) *spinner {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}
	return newSpinnerTo(w, message)
}

func newSpinnerTo(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		frame:   80 * time.Millisecond,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (s *spinner) start() {
	if s == nil {
		return
	}
	go func() {
		defer close(s.done)
		frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
		ticker := time.NewTicker(s.frame)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(frames) {
			fmt.Fprintf(s.w, "\r%s %s", frames[i], s.message)
			select {
			case <-s.stop:
				// Clear the line
				fmt.Fprint(s.w, "\r\033[K")
				return
			case <-ticker.C:
			}
		}
	}()
}

// finish stops the animation and clears the line. Safe to call twice.
func (s *spinner) finish() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stop)
		<-s.done
	})
}
