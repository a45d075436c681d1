package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType tags every message on the channel.
type MessageType string

// Inbound message types.
const (
	MsgConnectionEstablished MessageType = "connection_established"
	MsgGenerationStarted     MessageType = "lesson_generation_started"
	MsgLessonReady           MessageType = "lesson_ready"
	MsgPlaybackStarted       MessageType = "lesson_playback_started"
	MsgTeachingCommand       MessageType = "teaching_command"
	MsgLessonCompleted       MessageType = "lesson_completed"
	MsgAIResponse            MessageType = "ai_response"
	MsgError                 MessageType = "error"
)

// Outbound message types.
const (
	MsgPDFDocument  MessageType = "pdf_document"
	MsgUserMessage  MessageType = "user_message"
	MsgStartLesson  MessageType = "start_lesson"
	MsgStopLesson   MessageType = "stop_lesson"
	MsgNextStep     MessageType = "next_step"
	MsgPreviousStep MessageType = "previous_step"
)

var errMissingType = errors.New("message has no type")

// Inbound is a message received from the teaching service. Only the fields
// belonging to Type are set.
type Inbound struct {
	Type      MessageType     `json:"type"`
	SessionID string          `json:"session_id,omitempty"`
	Commands  json.RawMessage `json:"commands,omitempty"`
	Command   json.RawMessage `json:"command,omitempty"`
	Step      *int            `json:"step,omitempty"`
	Message   string          `json:"message,omitempty"`
}

func DecodeInbound(data []byte) (Inbound, error) {
	var m Inbound
	if err := json.Unmarshal(data, &m); err != nil {
		return Inbound{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return Inbound{}, errMissingType
	}
	return m, nil
}

// Outbound is a message sent to the teaching service.
type Outbound struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`

	Topic          string `json:"topic,omitempty"`
	Filename       string `json:"filename,omitempty"`
	Text           string `json:"text,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Encode stamps the message with now and marshals it.
func (o Outbound) Encode(now time.Time) ([]byte, error) {
	o.Timestamp = now.UTC()
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", o.Type, err)
	}
	return data, nil
}

// Document is the input the teaching service generates a lesson from.
type Document struct {
	ID       string
	Topic    string
	Filename string
	Text     string
}
