package domain

import "time"

// Payload is the message body of an inbound event. It is one of
// TextPayload, AudioPayload or ImagePayload.
type Payload interface {
	payload()
}

type TextPayload struct {
	Text string
}

type AudioPayload struct {
	MessageID string
	Duration  time.Duration
}

type ImagePayload struct {
	MessageID string
}

func (TextPayload) payload()  {}
func (AudioPayload) payload() {}
func (ImagePayload) payload() {}

// InboundEvent is one message notification delivered by the platform webhook.
type InboundEvent struct {
	EventID    string
	ReplyToken string
	SenderID   string
	Payload    Payload
	Redelivery bool
	Timestamp  time.Time
}

// Kind returns a short name for the payload variant, for logging.
func (e InboundEvent) Kind() string {
	switch e.Payload.(type) {
	case TextPayload:
		return "text"
	case AudioPayload:
		return "audio"
	case ImagePayload:
		return "image"
	default:
		return "unknown"
	}
}
