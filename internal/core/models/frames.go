package models

import (
	"encoding/json"
	"strconv"
)

// FrameType discriminates live connection frames
type FrameType string

// Inbound frame types
const (
	FrameConnectionEstablished FrameType = "connection_established"
	FrameChatMessage           FrameType = "chat_message"
	FrameChatHistory           FrameType = "chat_history"
	FrameUserTyping            FrameType = "user_typing"
	FrameUserTypingStop        FrameType = "user_typing_stop"
	FrameError                 FrameType = "error"
)

// Outbound frame types (chat_message is shared with inbound)
const (
	FrameTypingStart FrameType = "typing_start"
	FrameTypingStop  FrameType = "typing_stop"
)

// InboundFrame is the union of every frame the backend pushes. Only the fields
// relevant to Type are populated.
type InboundFrame struct {
	Type      FrameType `json:"type"`
	Role      Role      `json:"role,omitempty"`
	Content   string    `json:"content,omitempty"`
	Timestamp string    `json:"timestamp,omitempty"`
	History   string    `json:"history,omitempty"`
	Message   string    `json:"message,omitempty"`
}

// ChatFrame is the outbound chat_message frame
type ChatFrame struct {
	Type         FrameType `json:"type"`
	Content      string    `json:"content"`
	ImageData    ByteArray `json:"image_data"`
	UserLocation *Location `json:"user_location"`
}

// NewChatFrame builds an outbound chat_message frame
func NewChatFrame(content string, image []byte, loc *Location) ChatFrame {
	return ChatFrame{
		Type:         FrameChatMessage,
		Content:      content,
		ImageData:    ByteArray(image),
		UserLocation: loc,
	}
}

// SignalFrame is an outbound frame with no payload (typing_start / typing_stop)
type SignalFrame struct {
	Type FrameType `json:"type"`
}

// ByteArray marshals as a JSON array of numbers instead of base64, which is
// what the backend expects for image_data. A nil ByteArray marshals as null.
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, len(b)*4+2)
	buf = append(buf, '[')
	for i, v := range b {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(v), 10)
	}
	return append(buf, ']'), nil
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	// []uint8 would decode from base64, so go through []int
	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return err
	}
	nums := make([]byte, len(ints))
	for i, v := range ints {
		nums[i] = uint8(v)
	}
	*b = nums
	return nil
}
