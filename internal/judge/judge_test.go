package judge

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"hanteikun/internal/session"
)

type stubGenerator struct {
	mu        sync.Mutex
	response  string
	err       error
	histories [][]session.Turn
	messages  []string
}

func (s *stubGenerator) Generate(_ context.Context, history []session.Turn, message string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histories = append(s.histories, history)
	s.messages = append(s.messages, message)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubGenerator) Model() string {
	return "stub-model"
}

func newTestJudge(gen *stubGenerator) (*Judge, *session.MemoryStore) {
	store := session.NewMemoryStore()
	return New(store, gen, 0, zap.NewNop()), store
}

func TestHandleConversationalReply(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "これはブラックな香りがするな…"}
	j, store := newTestJudge(gen)

	reply := j.Handle(context.Background(), "u1", "雇用形態：業務委託、月給応相談")

	if reply.Text != "これはブラックな香りがするな…" {
		t.Fatalf("expected verbatim passthrough, got %q", reply.Text)
	}

	if reply.Card != nil || reply.Verdict != nil {
		t.Fatal("conversational reply must not carry a card")
	}

	turns := store.Get("u1")
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after round, got %d", len(turns))
	}

	if turns[0].Role != session.RoleUser || turns[0].Content != "雇用形態：業務委託、月給応相談" {
		t.Fatalf("unexpected user turn: %+v", turns[0])
	}

	if turns[1].Role != session.RoleAssistant || turns[1].Content != gen.response {
		t.Fatalf("unexpected assistant turn: %+v", turns[1])
	}
}

func TestHandleVerdictReply(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: `{"dangerScore":95,"verdict":"監獄","redFlags":["社保なし","残業代ゼロ"],"advice":"逃げろ"}`}
	j, store := newTestJudge(gen)

	reply := j.Handle(context.Background(), "u1", "求人票テキスト")

	if reply.Verdict == nil || reply.Card == nil {
		t.Fatal("expected a structured card reply")
	}

	if reply.Verdict.DangerScore != 95 {
		t.Fatalf("unexpected score: %v", reply.Verdict.DangerScore)
	}

	if len(reply.Verdict.RedFlags) != 2 {
		t.Fatalf("expected 2 red flags, got %d", len(reply.Verdict.RedFlags))
	}

	if got := TierFor(reply.Verdict.DangerScore).Rank; got != 3 {
		t.Fatalf("expected top severity tier, got rank %d", got)
	}

	if !strings.Contains(reply.AltText, "95%") {
		t.Fatalf("unexpected alt text: %q", reply.AltText)
	}

	if len(store.Get("u1")) != 2 {
		t.Fatalf("expected transcript persisted after verdict round")
	}
}

func TestHandleVerdictEmbeddedInCommentary(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "Sure! {\"dangerScore\":80,\"verdict\":\"ブラック\",\"redFlags\":[\"a\"],\"advice\":\"run\"} thanks"}
	j, _ := newTestJudge(gen)

	reply := j.Handle(context.Background(), "u1", "check this")

	if reply.Verdict == nil {
		t.Fatal("expected verdict extracted from commentary-laden response")
	}

	if reply.Verdict.DangerScore != 80 {
		t.Fatalf("unexpected score: %v", reply.Verdict.DangerScore)
	}
}

func TestHandleJSONWithoutScoreFallsBackToText(t *testing.T) {
	t.Parallel()

	raw := `{"note":"json-shaped but not a verdict"}`
	gen := &stubGenerator{response: raw}
	j, store := newTestJudge(gen)

	reply := j.Handle(context.Background(), "u1", "hello")

	if reply.Text != raw || reply.Card != nil {
		t.Fatalf("expected verbatim fallback, got %+v", reply)
	}

	if len(store.Get("u1")) != 2 {
		t.Fatal("fallback round must still persist the transcript")
	}
}

func TestHandleMalformedJSONFallsBackToText(t *testing.T) {
	t.Parallel()

	raw := `broken {"dangerScore": 80, "verdict":} output`
	gen := &stubGenerator{response: raw}
	j, store := newTestJudge(gen)

	reply := j.Handle(context.Background(), "u1", "hello")

	if reply.Text != raw || reply.Card != nil {
		t.Fatalf("expected verbatim fallback, got %+v", reply)
	}

	if len(store.Get("u1")) != 2 {
		t.Fatal("parse ambiguity is absorbed silently, session must persist")
	}
}

func TestHandleIncompleteVerdictFailsRound(t *testing.T) {
	t.Parallel()

	// dangerScore present but redFlags missing: strict field access makes
	// this a reportable error, not a silent default.
	gen := &stubGenerator{response: `{"dangerScore":80,"verdict":"ブラック","advice":"run"}`}
	j, store := newTestJudge(gen)

	store.Replace("u1", []session.Turn{{Role: session.RoleUser, Content: "earlier"}})

	reply := j.Handle(context.Background(), "u1", "hello")

	if reply.Card != nil {
		t.Fatal("incomplete verdict must not produce a card")
	}

	if !strings.Contains(reply.Text, "redFlags") {
		t.Fatalf("diagnostic must embed the error detail: %q", reply.Text)
	}

	if !strings.Contains(reply.Text, "リセット") {
		t.Fatalf("diagnostic must state that memory was reset: %q", reply.Text)
	}

	if len(store.Get("u1")) != 0 {
		t.Fatal("failed round must clear the session entirely")
	}
}

func TestHandleGenerationFailureClearsSession(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{err: errors.New("api quota exceeded")}
	j, store := newTestJudge(gen)

	store.Replace("u1", []session.Turn{
		{Role: session.RoleUser, Content: "previous"},
		{Role: session.RoleAssistant, Content: "reply"},
	})

	reply := j.Handle(context.Background(), "u1", "new message")

	if !strings.Contains(reply.Text, "api quota exceeded") {
		t.Fatalf("diagnostic must embed the underlying error: %q", reply.Text)
	}

	if len(store.Get("u1")) != 0 {
		t.Fatal("session must be empty after a failed round, regardless of prior contents")
	}
}

func TestHandleReplaysFullHistory(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "ok"}
	j, _ := newTestJudge(gen)

	j.Handle(context.Background(), "u1", "first")
	j.Handle(context.Background(), "u1", "second")

	if len(gen.histories) != 2 {
		t.Fatalf("expected 2 generation calls, got %d", len(gen.histories))
	}

	if len(gen.histories[0]) != 0 {
		t.Fatalf("first round must see an empty transcript, got %d turns", len(gen.histories[0]))
	}

	second := gen.histories[1]
	if len(second) != 2 {
		t.Fatalf("second round must see the 2 turns of round one, got %d", len(second))
	}

	if second[0].Content != "first" || second[1].Content != "ok" {
		t.Fatalf("unexpected replayed history: %+v", second)
	}
}

func TestHandleCapsTranscriptLength(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "ok"}
	store := session.NewMemoryStore()
	j := New(store, gen, 4, zap.NewNop())

	for i := 0; i < 5; i++ {
		j.Handle(context.Background(), "u1", "msg")
	}

	if got := len(store.Get("u1")); got != 4 {
		t.Fatalf("expected transcript capped at 4 turns, got %d", got)
	}
}

func TestHandleSerializesSameUserRounds(t *testing.T) {
	t.Parallel()

	gen := &stubGenerator{response: "ok"}
	j, store := newTestJudge(gen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.Handle(context.Background(), "u1", "msg")
		}()
	}
	wg.Wait()

	// Serialized rounds never drop each other's appends.
	if got := len(store.Get("u1")); got != 16 {
		t.Fatalf("expected 16 turns after 8 serialized rounds, got %d", got)
	}
}
