package chat

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/neilberkman/medichat/internal/core/attachment"
	"github.com/neilberkman/medichat/internal/core/live"
	"github.com/neilberkman/medichat/internal/core/logger"
	"github.com/neilberkman/medichat/internal/core/models"
)

// SendMessage sends text, the pending image and the last known location to
// the active session. Nothing is transmitted while disconnected.
func (c *Coordinator) SendMessage(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrEmptyMessage
	}
	if c.maxInputChars > 0 && utf8.RuneCountInString(text) > c.maxInputChars {
		c.mu.Lock()
		c.display.ShowError("Message is too long")
		c.mu.Unlock()
		return ErrMessageTooLong
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if !c.conn.Connected() {
		c.mu.Lock()
		c.display.ShowError("Not connected. Waiting for the connection to come back.")
		c.mu.Unlock()
		return live.ErrNotConnected
	}

	c.mu.Lock()
	sessionID := c.st.sessionID
	var image []byte
	if c.image != nil {
		image = c.image.Data
	}
	c.mu.Unlock()

	var loc *models.Location
	if c.locations != nil {
		loc = c.locations.LastLocation()
	}

	if err := c.conn.Send(models.NewChatFrame(text, image, loc)); err != nil {
		c.showError("Message could not be sent", err)
		return err
	}
	logger.Debug("sent message", "session", sessionID, "image_bytes", len(image), "location", loc != nil)

	c.mu.Lock()
	if c.st.sessionID == sessionID {
		c.display.AppendMessage(models.Message{
			Role:      models.RoleUser,
			Content:   text,
			Image:     image,
			Timestamp: time.Now(),
		})
		c.display.SetTyping(false)
		c.display.SetLoading(true)
	}
	if image != nil {
		c.image = nil
		c.display.ShowAttachment("")
	}
	c.mu.Unlock()

	if c.typing != nil {
		c.typing.Flush()
	}
	return nil
}

// AttachImage validates the file at path and makes it the pending image. A
// rejected file leaves the previous attachment in place.
func (c *Coordinator) AttachImage(path string) error {
	img, err := attachment.Load(path, c.maxImageBytes)
	if err != nil {
		msg := err.Error()
		if !attachment.IsValidationError(err) {
			msg = "Could not read the image"
		}
		logger.Warn("rejected attachment", "path", path, "err", err)

		c.mu.Lock()
		c.display.ShowError(msg)
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.image = &img
	c.display.ShowAttachment(img.Label())
	c.mu.Unlock()
	return nil
}

// RemoveImage drops the pending image
func (c *Coordinator) RemoveImage() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.image = nil
	c.display.ShowAttachment("")
}

// PendingImage returns the image that will go out with the next message
func (c *Coordinator) PendingImage() *attachment.Image {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image
}

// InputActivity records a keystroke in the input box
func (c *Coordinator) InputActivity() {
	if c.typing != nil {
		c.typing.Activity()
	}
}
