// Package protocol defines the messages the monitor API streams to clients.
package protocol

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeStatus is sent on connect and whenever the interceptor starts or stops
	TypeStatus MessageType = "status"

	// TypeMasher is sent whenever the masher flag flips
	TypeMasher MessageType = "masher"

	// TypeFrame carries a gamepad frame as JSON for clients that asked for text
	TypeFrame MessageType = "frame"

	// TypeSubscribe is sent by a client to pick the frame encoding
	TypeSubscribe MessageType = "subscribe"

	// TypePing can be used for application-level heartbeats if needed
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket text messages
type Message struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatusPayload is the payload for TypeStatus
type StatusPayload struct {
	Running      bool   `json:"running"`
	MasherActive bool   `json:"masher_active"`
	Platform     string `json:"platform,omitempty"`
	LastError    string `json:"last_error,omitempty"`
}

// MasherPayload is the payload for TypeMasher
type MasherPayload struct {
	Active bool `json:"active"`
}

// SubscribePayload is the payload for TypeSubscribe
type SubscribePayload struct {
	// Binary selects binary frame packets (the default) over JSON frames
	Binary bool `json:"binary"`
}
