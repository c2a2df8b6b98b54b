package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"hanteikun/internal/judge"
	"hanteikun/internal/line"
)

// replyTimeout bounds one full round including the reply delivery. LINE
// reply tokens expire, so there is no point in waiting longer.
const replyTimeout = 60 * time.Second

// Replier delivers outbound messages for a webhook reply token.
type Replier interface {
	ReplyText(ctx context.Context, replyToken, text string) error
	ReplyFlex(ctx context.Context, replyToken, altText string, bubble *line.FlexBubble) error
}

// Server exposes the LINE webhook endpoint and dispatches text-message
// events to the judge.
type Server struct {
	router        *chi.Mux
	addr          string
	channelSecret string
	judge         *judge.Judge
	replier       Replier
	logger        *zap.Logger
}

func New(addr, channelSecret string, j *judge.Judge, replier Replier, logger *zap.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	s := &Server{
		router:        router,
		addr:          addr,
		channelSecret: channelSecret,
		judge:         j,
		replier:       replier,
		logger:        logger,
	}

	router.Get("/health", s.health)
	router.Post("/callback", s.callback)

	return s
}

// Start serves until the context is canceled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("server shutdown", zap.Error(err))
		}
	}()

	s.logger.Info("webhook server starting", zap.String("addr", s.addr))

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	events, err := line.ParseWebhook(s.channelSecret, r)
	if err != nil {
		status := http.StatusBadRequest
		if !errors.Is(err, line.ErrInvalidSignature) {
			s.logger.Warn("parsing webhook", zap.Error(err))
		}
		http.Error(w, http.StatusText(status), status)
		return
	}

	for _, event := range events {
		if !event.IsTextMessage() {
			continue
		}
		// Reply tokens outlive the webhook request, so rounds run
		// detached while the platform gets its 200 immediately.
		go s.handleEvent(event)
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleEvent(event line.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	reply := s.judge.Handle(ctx, event.Source.UserID, event.Message.Text)

	var err error
	if reply.Card != nil {
		err = s.replier.ReplyFlex(ctx, event.ReplyToken, reply.AltText, reply.Card)
	} else {
		err = s.replier.ReplyText(ctx, event.ReplyToken, reply.Text)
	}

	if err != nil {
		s.logger.Error("delivering reply", zap.Error(err))
	}
}
