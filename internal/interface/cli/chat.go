package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/medichat/internal/core/chat"
	"github.com/neilberkman/medichat/internal/core/geo"
	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/interface/tui"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:     "chat",
	Aliases: []string{"tui"},
	Short:   "Open the interactive chat",
	Long: `Open the interactive chat. The most recent conversation is resumed, or a
new one is started if there are none.

Keys:
  enter        send (alt+enter for a newline)
  ctrl+s       conversation list
  ctrl+n       new conversation
  ctrl+y       copy the last reply
  ctrl+g       search an address for your location
  f1           help`,
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	client := newClient()
	manager := live.NewManager(cfg.ServerURL, live.Options{ReconnectDelay: cfg.ReconnectDelay})
	typing := live.NewTypingNotifier(manager, cfg.TypingIdle, nil)

	opts := chat.Options{
		Typing:        typing,
		MaxImageBytes: cfg.MaxImageBytes,
		MaxInputChars: cfg.MaxInputChars,
	}
	tuiOpts := tui.Options{
		Welcome:       cfg.WelcomeMessage,
		MaxInputChars: cfg.MaxInputChars,
	}

	// Location state is optional; chat still works without it
	state, err := openLocationState()
	if err != nil {
		logger.Warn("location storage unavailable", "err", err)
	} else {
		defer state.close(keepScope)
		opts.Locations = state.store
		tuiOpts.Locations = state.store
		if cfg.KakaoRESTKey != "" {
			tuiOpts.Places = geo.NewKakao(cfg.KakaoRESTKey)
		}
	}

	bridge := tui.NewBridge()
	coord := chat.New(client, manager, bridge, opts)
	manager.Bind(coord)

	p := tea.NewProgram(
		tui.New(coord, tuiOpts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	bridge.Run(p)

	_, err = p.Run()

	coord.Close()
	bridge.Stop()

	if err != nil {
		return fmt.Errorf("error running chat: %w", err)
	}
	if state != nil && keepScope {
		fmt.Fprintf(cmd.OutOrStdout(), "Location scope kept: %s\n", state.store.Scope())
	}
	return nil
}
