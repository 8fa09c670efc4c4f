package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/neilberkman/medichat/internal/core/chat"
	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/models"
	"github.com/spf13/cobra"
)

var (
	sendSession string
	sendImage   string
	sendTimeout time.Duration
)

var errNoReply = errors.New("no reply before timeout")

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message and print the reply",
	Long: `Send one message and wait for the assistant's reply.

Without --session the most recent conversation is used, or a new one is
started. Pass --scope to attach a location stored by 'medichat location'.

Examples:
  medichat send "Can I take ibuprofen with coffee?"
  medichat send --session 6f1c2a --image rash.jpg "What is this?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendSession, "session", "s", "", "Conversation to send to")
	sendCmd.Flags().StringVar(&sendImage, "image", "", "Image file to attach")
	sendCmd.Flags().DurationVar(&sendTimeout, "timeout", 2*time.Minute, "How long to wait for the reply")
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.Join(args, " ")

	manager := live.NewManager(cfg.ServerURL, live.Options{ReconnectDelay: cfg.ReconnectDelay})
	display := newPrintDisplay(cmd.ErrOrStderr())

	opts := chat.Options{
		MaxImageBytes: cfg.MaxImageBytes,
		MaxInputChars: cfg.MaxInputChars,
	}
	if scopeID != "" {
		state, err := openLocationState()
		if err != nil {
			return err
		}
		defer state.close(true)
		opts.Locations = state.store
	}

	coord := chat.New(newClient(), manager, display, opts)
	manager.Bind(coord)
	defer coord.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
	defer cancel()

	var err error
	if sendSession != "" {
		err = coord.SwitchSession(ctx, sendSession)
	} else {
		err = coord.ResolveActiveSession(ctx)
	}
	if err != nil {
		return err
	}

	if sendImage != "" {
		if err := coord.AttachImage(expandPath(sendImage)); err != nil {
			return err
		}
	}

	display.expectReply()
	if err := coord.SendMessage(ctx, text); err != nil {
		return fmt.Errorf("failed to send: %w", err)
	}

	spin := newSpinner(cmd.ErrOrStderr(), "Waiting for a reply...")
	spin.start()
	reply, err := display.waitReply(ctx)
	spin.finish()
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), reply.Content)
	fmt.Fprintf(cmd.ErrOrStderr(), "(session %s)\n", coord.ActiveSessionID())
	return nil
}

// printDisplay is the non-interactive display: errors go to w, and the
// first assistant message after expectReply is handed to waitReply. Calls
// never block.
type printDisplay struct {
	w io.Writer

	mu      sync.Mutex
	waiting bool
	reply   chan models.Message
}

func newPrintDisplay(w io.Writer) *printDisplay {
	return &printDisplay{w: w, reply: make(chan models.Message, 1)}
}

func (d *printDisplay) expectReply() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.waiting = true
}

func (d *printDisplay) waitReply(ctx context.Context) (models.Message, error) {
	select {
	case msg := <-d.reply:
		return msg, nil
	case <-ctx.Done():
		return models.Message{}, errNoReply
	}
}

func (d *printDisplay) AppendMessage(msg models.Message) {
	if msg.Role != models.RoleAssistant {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.waiting {
		return
	}
	d.waiting = false
	d.reply <- msg
}

func (d *printDisplay) ShowError(msg string) {
	fmt.Fprintln(d.w, "error:", msg)
}

func (d *printDisplay) ShowAttachment(label string) {
	if label != "" {
		fmt.Fprintln(d.w, "attached", label)
	}
}

func (d *printDisplay) ResetToWelcome()                       {}
func (d *printDisplay) ShowSessions([]models.Session, string) {}
func (d *printDisplay) SetConnected(bool)                     {}
func (d *printDisplay) SetTyping(bool)                        {}
func (d *printDisplay) SetLoading(bool)                       {}
