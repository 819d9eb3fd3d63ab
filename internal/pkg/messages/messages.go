package messages

import (
	amessages "github.com/airenas/async-api/pkg/messages"
)

const (
	st = "ECHOES/"
	// Process queue name - triggers the pipeline for one echo
	Process = st + "Process"
	// StatusChange queue name - echo status changed, listeners may push updates
	StatusChange = st + "StatusChange"
	// Inform queue name - terminal pipeline events for the mailer
	Inform = st + "Inform"
	// Fail queue name
	Fail = st + "Fail"
)

// EchoMessage is the main message passing through the echoes pipeline
type EchoMessage struct {
	amessages.QueueMessage
	RequestID string `json:"requestID,omitempty"`
}

// NewMessageFrom creates a copy of a message
func NewMessageFrom(m *EchoMessage) *EchoMessage {
	return &EchoMessage{QueueMessage: m.QueueMessage, RequestID: m.RequestID}
}
