package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const signatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when the webhook body does not match the
// X-Line-Signature header.
var ErrInvalidSignature = errors.New("invalid webhook signature")

const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
)

// Event is a single webhook event from the LINE platform. Only the fields
// the bot consumes are modeled.
type Event struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		Type   string `json:"type"`
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"message"`
}

type webhookBody struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// ValidateSignature checks the body digest against the base64-encoded
// HMAC-SHA256 signature supplied by the platform.
func ValidateSignature(channelSecret string, body []byte, signature string) bool {
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(channelSecret))
	mac.Write(body)

	return hmac.Equal(decoded, mac.Sum(nil))
}

// ParseWebhook validates the request signature and decodes the webhook
// events. A signature mismatch returns ErrInvalidSignature.
func ParseWebhook(channelSecret string, r *http.Request) ([]Event, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading webhook body: %w", err)
	}

	if !ValidateSignature(channelSecret, body, r.Header.Get(signatureHeader)) {
		return nil, ErrInvalidSignature
	}

	var parsed webhookBody
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decoding webhook body: %w", err)
	}

	return parsed.Events, nil
}

// IsTextMessage reports whether the event carries a user text message.
func (e *Event) IsTextMessage() bool {
	return e.Type == EventTypeMessage && e.Message.Type == MessageTypeText
}
