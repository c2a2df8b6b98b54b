package judge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"hanteikun/internal/ai"
	"hanteikun/internal/line"
	"hanteikun/internal/session"
)

// Judge runs one full request/response round per inbound user message: it
// loads the user's transcript, invokes the generation service, classifies
// the response as a verdict or plain conversation, and persists or resets
// the transcript.
type Judge struct {
	store     session.Store
	generator ai.Generator
	logger    *zap.Logger
	maxTurns  int

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
}

// New creates a Judge. maxTurns bounds the stored transcript length in
// turns; zero keeps it unbounded.
func New(store session.Store, generator ai.Generator, maxTurns int, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Judge{
		store:     store,
		generator: generator,
		logger:    logger,
		maxTurns:  maxTurns,
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Reply is the single outbound reply produced for one inbound message.
// Text always holds a plain text rendering; Card is non-nil only for
// assessment mode.
type Reply struct {
	Text    string
	Verdict *Verdict
	Card    *line.FlexBubble
	AltText string
}

// Handle executes one round for the user. Rounds for the same user are
// serialized; rounds for different users run concurrently. Exactly one
// reply is returned per call, and the transcript is either extended by the
// two new turns or cleared entirely, never both.
func (j *Judge) Handle(ctx context.Context, userID, text string) Reply {
	unlock := j.lockUser(userID)
	defer unlock()

	history := j.store.Get(userID)

	raw, err := j.generator.Generate(ctx, history, text)
	if err != nil {
		return j.fail(userID, fmt.Errorf("generation failed: %w", err))
	}

	obj, err := ExtractObject(raw)
	if err != nil {
		// No JSON span, or a span that does not parse: the response is
		// passed through verbatim as conversation.
		if !errors.Is(err, ErrNoJSON) {
			j.logger.Debug("treating unparseable span as conversation", zap.Error(err))
		}
		j.persist(userID, history, text, raw)
		return Reply{Text: raw}
	}

	if _, ok := obj[scoreKey]; !ok {
		// JSON-shaped but not a verdict.
		j.persist(userID, history, text, raw)
		return Reply{Text: raw}
	}

	verdict, err := verdictFromObject(obj)
	if err != nil {
		return j.fail(userID, err)
	}

	j.persist(userID, history, text, raw)

	j.logger.Info("verdict produced",
		zap.Float64("danger_score", verdict.DangerScore),
		zap.String("verdict", verdict.Label),
		zap.Int("red_flags", len(verdict.RedFlags)),
	)

	return Reply{
		Text:    RenderPlainText(verdict),
		Verdict: verdict,
		Card:    RenderCard(verdict),
		AltText: RenderAltText(verdict),
	}
}

func (j *Judge) persist(userID string, history []session.Turn, userText, assistantText string) {
	updated := append(history,
		session.Turn{Role: session.RoleUser, Content: userText},
		session.Turn{Role: session.RoleAssistant, Content: assistantText},
	)

	if j.maxTurns > 0 && len(updated) > j.maxTurns {
		updated = updated[len(updated)-j.maxTurns:]
	}

	j.store.Replace(userID, updated)
}

// fail clears the user's transcript and produces the diagnostic reply. The
// user is told that conversation memory was reset, with the underlying
// error detail attached.
func (j *Judge) fail(userID string, err error) Reply {
	j.store.Clear(userID)

	j.logger.Warn("round failed, session cleared",
		zap.String("user_id", userID),
		zap.Error(err),
	)

	text := fmt.Sprintf(
		"💦 エラーが発生しました。\n会話の記憶はリセットされました。しばらく待ってからもう一度お試しください。\n(%s)",
		err,
	)

	return Reply{Text: text}
}

func (j *Judge) lockUser(userID string) func() {
	j.mu.Lock()
	lock, ok := j.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		j.userLocks[userID] = lock
	}
	j.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
