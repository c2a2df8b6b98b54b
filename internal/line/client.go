package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	apiURL      = "https://api.line.me"
	contentType = "application/json"
)

// Client talks to the LINE Messaging API reply endpoint.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	APIURL     string
}

func NewClient(token string, logger *zap.Logger) *Client {
	return &Client{
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		APIURL: apiURL,
	}
}

// TextMessage is a plain text outbound message.
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FlexMessage is a structured outbound message with a bubble container.
type FlexMessage struct {
	Type     string      `json:"type"`
	AltText  string      `json:"altText"`
	Contents *FlexBubble `json:"contents"`
}

type replyRequest struct {
	ReplyToken string `json:"replyToken"`
	Messages   []any  `json:"messages"`
}

// ReplyText sends a single plain text reply for the given reply token.
func (c *Client) ReplyText(ctx context.Context, replyToken, text string) error {
	return c.reply(ctx, replyToken, TextMessage{Type: "text", Text: text})
}

// ReplyFlex sends a single flex bubble reply for the given reply token.
func (c *Client) ReplyFlex(ctx context.Context, replyToken, altText string, bubble *FlexBubble) error {
	return c.reply(ctx, replyToken, FlexMessage{Type: "flex", AltText: altText, Contents: bubble})
}

func (c *Client) reply(ctx context.Context, replyToken string, messages ...any) error {
	payload, err := json.Marshal(replyRequest{ReplyToken: replyToken, Messages: messages})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	url := c.APIURL + "/v2/bot/message/reply"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request", zap.String("url", url), zap.Int("payload_bytes", len(payload)))

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("bad status: %s: %s", resp.Status, detail)
	}

	return nil
}
