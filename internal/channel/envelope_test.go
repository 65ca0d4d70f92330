package channel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linenote/internal/domain"
)

const callbackBody = `{
  "destination": "Ubot",
  "events": [
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1760405400000,
      "webhookEventId": "01EV-TEXT",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "rt-text",
      "source": {"type": "user", "userId": "U1"},
      "message": {"type": "text", "id": "m1", "quoteToken": "q1", "text": "/a remember this"}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1760405401000,
      "webhookEventId": "01EV-AUDIO",
      "deliveryContext": {"isRedelivery": true},
      "replyToken": "rt-audio",
      "source": {"type": "group", "groupId": "G1", "userId": "U2"},
      "message": {"type": "audio", "id": "m2", "duration": 4200, "contentProvider": {"type": "line"}}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1760405402000,
      "webhookEventId": "01EV-IMAGE",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "rt-image",
      "source": {"type": "user", "userId": "U1"},
      "message": {"type": "image", "id": "m3", "quoteToken": "q3", "contentProvider": {"type": "line"}}
    },
    {
      "type": "follow",
      "mode": "active",
      "timestamp": 1760405403000,
      "webhookEventId": "01EV-FOLLOW",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "rt-follow",
      "source": {"type": "user", "userId": "U3"},
      "follow": {"isUnblocked": false}
    },
    {
      "type": "message",
      "mode": "active",
      "timestamp": 1760405404000,
      "webhookEventId": "01EV-STICKER",
      "deliveryContext": {"isRedelivery": false},
      "replyToken": "rt-sticker",
      "source": {"type": "user", "userId": "U1"},
      "message": {"type": "sticker", "id": "m5", "quoteToken": "q5", "packageId": "1", "stickerId": "1", "stickerResourceType": "STATIC"}
    }
  ]
}`

func TestParseEvents(t *testing.T) {
	events, skipped, err := ParseEvents([]byte(callbackBody))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 2, skipped)

	text := events[0]
	assert.Equal(t, "01EV-TEXT", text.EventID)
	assert.Equal(t, "rt-text", text.ReplyToken)
	assert.Equal(t, "U1", text.SenderID)
	assert.Equal(t, domain.TextPayload{Text: "/a remember this"}, text.Payload)
	assert.False(t, text.Redelivery)
	assert.True(t, text.Timestamp.Equal(time.UnixMilli(1760405400000)))

	audio := events[1]
	assert.Equal(t, "U2", audio.SenderID)
	assert.Equal(t, domain.AudioPayload{MessageID: "m2", Duration: 4200 * time.Millisecond}, audio.Payload)
	assert.True(t, audio.Redelivery)

	assert.Equal(t, domain.ImagePayload{MessageID: "m3"}, events[2].Payload)
}

func TestParseEvents_Empty(t *testing.T) {
	events, skipped, err := ParseEvents([]byte(`{"destination":"Ubot","events":[]}`))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Zero(t, skipped)
}

func TestParseEvents_Malformed(t *testing.T) {
	_, _, err := ParseEvents([]byte(`not json`))
	assert.Error(t, err)
}
