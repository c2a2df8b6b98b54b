package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"hanteikun/internal/session"
	"hanteikun/internal/util"
)

const (
	defaultModel        = "gemini-2.5-flash"
	defaultTimeout      = 60 * time.Second
	defaultMaxLogLength = 200

	// retryBackoff is the pause between attempts on transient server errors.
	retryBackoff = 2 * time.Second
	// maxQuotaDelay bounds how long we are willing to honor a quota retry
	// hint before giving up on the round instead.
	maxQuotaDelay = 30 * time.Second
)

// The persona and two-mode output contract conveyed to the model on every
// chat session.
//
//go:embed prompt.md
var systemInstruction string

var sleep = time.Sleep

var quotaDelayPattern = regexp.MustCompile(`retry after (\d+)`)

type chatSession interface {
	SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type chatCreator interface {
	Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error)
}

type genaiChats struct {
	client *genai.Client
}

func (g *genaiChats) Create(ctx context.Context, model string, config *genai.GenerateContentConfig, history []*genai.Content) (chatSession, error) {
	return g.client.Chats.Create(ctx, model, config, history)
}

// Generator wraps the Google GenAI client and exposes transcript-based chat
// generation with the fixed persona for the Gemini API backend.
type Generator struct {
	chats      chatCreator
	model      string
	maxRetries int
	timeout    time.Duration
	maxLogLen  int
	logger     *zap.Logger
}

// NewGenerator creates a Generator for the Gemini API backend. A timeout of
// zero leaves each generation attempt bounded only by the caller's context.
func NewGenerator(ctx context.Context, apiKey, model string, maxRetries int, timeout time.Duration, maxLogLength int, logger *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	cfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}

	if maxRetries < 1 {
		maxRetries = 1
	}

	if timeout < 0 {
		timeout = defaultTimeout
	}

	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Generator{
		chats:      &genaiChats{client: client},
		model:      model,
		maxRetries: maxRetries,
		timeout:    timeout,
		maxLogLen:  maxLogLength,
		logger:     logger,
	}, nil
}

// Generate creates a chat session seeded with the transcript and sends the
// new user message, returning the first textual response. Transient server
// errors are retried up to the configured attempt count.
func (g *Generator) Generate(ctx context.Context, history []session.Turn, message string) (string, error) {
	if g == nil || g.chats == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(strings.TrimSpace(systemInstruction), genai.RoleUser),
		SafetySettings:    safetyOff(),
	}
	contents := historyContents(history)

	g.logger.Debug("gemini chat request",
		zap.Int("history_turns", len(history)),
		zap.Int("message_length", utf8.RuneCountInString(message)),
		zap.String("message_preview", util.TruncateForLog(message, g.maxLogLen)),
	)

	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		output, err := g.send(ctx, config, contents, message)
		if err == nil {
			g.logger.Debug("gemini chat response",
				zap.Int("response_length", utf8.RuneCountInString(output)),
				zap.String("response_preview", util.TruncateForLog(output, g.maxLogLen)),
			)
			return output, nil
		}

		lastErr = err

		delay, retryable := retryDelay(err)
		if !retryable || attempt == g.maxRetries {
			break
		}

		g.logger.Debug("retrying gemini call",
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		sleep(delay)
	}

	return "", lastErr
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) send(ctx context.Context, config *genai.GenerateContentConfig, contents []*genai.Content, message string) (string, error) {
	chat, err := g.chats.Create(ctx, g.model, config, contents)
	if err != nil {
		return "", fmt.Errorf("create chat session: %w", err)
	}

	sendCtx := ctx
	if g.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := chat.SendMessage(sendCtx, genai.Part{Text: message})
	if err != nil {
		return "", err
	}

	return collectText(resp)
}

func collectText(resp *genai.GenerateContentResponse) (string, error) {
	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	output := strings.TrimSpace(builder.String())
	if output == "" {
		return "", errors.New("gemini api returned empty response")
	}

	return output, nil
}

// retryDelay classifies an attempt error: server-side failures retry after a
// fixed backoff, quota errors retry only when the suggested delay is short
// enough, everything else fails the round.
func retryDelay(err error) (time.Duration, bool) {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return 0, false
	}

	if apiErr.Code >= http.StatusInternalServerError {
		return retryBackoff, true
	}

	if apiErr.Code == http.StatusTooManyRequests {
		delay := retryBackoff
		if match := quotaDelayPattern.FindStringSubmatch(apiErr.Message); match != nil {
			if seconds, err := strconv.Atoi(match[1]); err == nil {
				delay = time.Duration(seconds) * time.Second
			}
		}
		if delay > maxQuotaDelay {
			return 0, false
		}
		return delay, true
	}

	return 0, false
}

func safetyOff() []*genai.SafetySetting {
	categories := []genai.HarmCategory{
		genai.HarmCategoryHarassment,
		genai.HarmCategoryHateSpeech,
		genai.HarmCategorySexuallyExplicit,
		genai.HarmCategoryDangerousContent,
	}

	settings := make([]*genai.SafetySetting, 0, len(categories))
	for _, category := range categories {
		settings = append(settings, &genai.SafetySetting{
			Category:  category,
			Threshold: genai.HarmBlockThresholdBlockNone,
		})
	}

	return settings
}

func historyContents(history []session.Turn) []*genai.Content {
	if len(history) == 0 {
		return nil
	}

	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		var role genai.Role = genai.RoleUser
		if turn.Role == session.RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(turn.Content, role))
	}

	return contents
}
