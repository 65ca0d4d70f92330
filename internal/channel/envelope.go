package channel

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"linenote/internal/domain"
)

// ParseEvents decodes a webhook body into inbound message events. Events
// the bot does not handle (follows, stickers, videos) are dropped and
// counted in skipped.
func ParseEvents(body []byte) (events []domain.InboundEvent, skipped int, err error) {
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, 0, fmt.Errorf("decode webhook body: %w", err)
	}
	for _, raw := range cb.Events {
		ev, ok := toInbound(raw)
		if !ok {
			skipped++
			continue
		}
		events = append(events, ev)
	}
	return events, skipped, nil
}

func toInbound(raw webhook.EventInterface) (domain.InboundEvent, bool) {
	var msg webhook.MessageEvent
	switch e := raw.(type) {
	case webhook.MessageEvent:
		msg = e
	case *webhook.MessageEvent:
		msg = *e
	default:
		return domain.InboundEvent{}, false
	}

	payload, ok := toPayload(msg.Message)
	if !ok {
		return domain.InboundEvent{}, false
	}
	ev := domain.InboundEvent{
		EventID:    msg.WebhookEventId,
		ReplyToken: msg.ReplyToken,
		SenderID:   senderOf(msg.Source),
		Payload:    payload,
		Timestamp:  time.UnixMilli(msg.Timestamp),
	}
	if msg.DeliveryContext != nil {
		ev.Redelivery = msg.DeliveryContext.IsRedelivery
	}
	return ev, true
}

func toPayload(m webhook.MessageContentInterface) (domain.Payload, bool) {
	switch c := m.(type) {
	case webhook.TextMessageContent:
		return domain.TextPayload{Text: c.Text}, true
	case *webhook.TextMessageContent:
		return domain.TextPayload{Text: c.Text}, true
	case webhook.AudioMessageContent:
		return domain.AudioPayload{MessageID: c.Id, Duration: time.Duration(c.Duration) * time.Millisecond}, true
	case *webhook.AudioMessageContent:
		return domain.AudioPayload{MessageID: c.Id, Duration: time.Duration(c.Duration) * time.Millisecond}, true
	case webhook.ImageMessageContent:
		return domain.ImagePayload{MessageID: c.Id}, true
	case *webhook.ImageMessageContent:
		return domain.ImagePayload{MessageID: c.Id}, true
	}
	return nil, false
}

// senderOf returns the user id of the source. Group and room sources carry
// one only when the user has consented.
func senderOf(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case *webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.UserId
	case *webhook.GroupSource:
		return s.UserId
	case webhook.RoomSource:
		return s.UserId
	case *webhook.RoomSource:
		return s.UserId
	}
	return ""
}
