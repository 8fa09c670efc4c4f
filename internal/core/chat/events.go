package chat

import (
	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
	"github.com/neilberkman/medichat/pkg/chathistory"
)

// HandleEvent applies a live connection event. Events for any session other
// than the active one are dropped.
func (c *Coordinator) HandleEvent(ev live.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ev.SessionID != c.st.sessionID {
		logger.Debug("dropping event for inactive session", "kind", ev.Kind, "session", ev.SessionID)
		return
	}

	switch ev.Kind {
	case live.EventOpened:
		c.display.SetConnected(true)
	case live.EventClosed:
		c.display.SetConnected(false)
		c.display.SetTyping(false)
	case live.EventTransportError:
		c.display.ShowError("Connection problem, retrying shortly")
	case live.EventFrame:
		c.handleFrameLocked(ev.Frame)
	}
}

func (c *Coordinator) handleFrameLocked(frame models.InboundFrame) {
	switch frame.Type {
	case models.FrameConnectionEstablished:
		logger.Debug("connection established", "session", c.st.sessionID)

	case models.FrameChatMessage:
		// The server echoes our own messages; those were rendered on send
		if frame.Role != models.RoleAssistant {
			return
		}
		c.display.AppendMessage(models.Message{
			Role:      models.RoleAssistant,
			Content:   frame.Content,
			Timestamp: models.ParseTimestamp(frame.Timestamp),
		})
		c.display.SetLoading(false)

	case models.FrameChatHistory:
		if c.st.historyMaterialized {
			logger.Debug("ignoring history replay, already rendered", "session", c.st.sessionID)
			return
		}
		turns := chathistory.Parse(frame.History)
		if len(turns) == 0 {
			return
		}
		c.display.ResetToWelcome()
		for _, turn := range turns {
			c.display.AppendMessage(models.Message{Role: turn.Role, Content: turn.Text})
		}
		c.st.historyMaterialized = true

	case models.FrameUserTyping:
		c.display.SetTyping(true)
	case models.FrameUserTypingStop:
		c.display.SetTyping(false)

	case models.FrameError:
		msg := frame.Message
		if msg == "" {
			msg = "The server reported an error"
		}
		c.display.SetLoading(false)
		c.display.ShowError(msg)

	default:
		logger.Debug("ignoring unknown frame", "type", frame.Type)
	}
}
