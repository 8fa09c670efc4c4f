package models

import (
	"errors"
	"fmt"
)

// Session represents a conversation session as returned by the backend
type Session struct {
	ID           string `json:"session_id"`
	MessageCount int    `json:"message_count"`
	Order        int    `json:"-"` // Position in the backend's newest-first list
}

// Validate checks if the session has required fields
func (s *Session) Validate() error {
	if s.ID == "" {
		return errors.New("session_id is required")
	}
	if s.MessageCount < 0 {
		return errors.New("message_count must not be negative")
	}
	return nil
}

// Title numbers sessions oldest-first, so the newest of n sessions is "Conversation n"
func (s Session) Title(total int) string {
	return fmt.Sprintf("Conversation %d", total-s.Order)
}
