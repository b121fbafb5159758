// Package server exposes chats over a local HTTP API. Replies stream as
// server-sent events, one active stream per chat.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/baldionna/baldi/internal/ai"
	"github.com/baldionna/baldi/internal/chats"
	"github.com/baldionna/baldi/internal/logging"
	"github.com/baldionna/baldi/internal/search"
)

// Completer runs prompts in per-chat slots.
type Completer interface {
	Ask(ctx context.Context, slot, prompt string, history []ai.Message, sink ai.Sink, opts ...ai.RequestOption) (ai.Outcome, error)
	Cancel(slot string) bool
	Provider() string
	Model() string
}

// Augmenter rewrites a prompt with web search results.
type Augmenter interface {
	Augment(ctx context.Context, prompt string) (*search.Augmentation, error)
}

// Server is the local HTTP API.
type Server struct {
	echo      *echo.Echo
	client    Completer
	store     *chats.Store
	augmenter Augmenter
	log       *zap.Logger

	// OnOutcome, if set, is called after every finished stream.
	OnOutcome func(ai.Outcome, bool)
}

// New builds the server and its routes. augmenter may be nil, in which case
// requests asking for web search are answered without it.
func New(client Completer, store *chats.Store, augmenter Augmenter) *Server {
	s := &Server{
		echo:      echo.New(),
		client:    client,
		store:     store,
		augmenter: augmenter,
		log:       logging.L().Named("server"),
	}
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.errorHandler

	e.Use(middleware.Recover())
	e.Use(s.requestLogger)
	e.Use(middleware.BodyLimit("1M"))

	api := e.Group("/api/v1")
	api.GET("/health", s.health)
	api.GET("/chats", s.listChats)
	api.POST("/chats", s.createChat)
	api.GET("/chats/:id", s.getChat)
	api.PATCH("/chats/:id", s.renameChat)
	api.DELETE("/chats/:id", s.deleteChat)
	api.POST("/chats/:id/messages", s.postMessage)
	api.DELETE("/chats/:id/stream", s.cancelStream)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown is called.
func (s *Server) Start(addr string) error {
	s.log.Info("listening", zap.String("addr", addr))
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for active ones.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}
		req := c.Request()
		s.log.Info("request",
			zap.String("method", req.Method),
			zap.String("path", req.URL.Path),
			zap.Int("status", c.Response().Status),
			zap.Duration("latency", time.Since(start)))
		return nil
	}
}

func (s *Server) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := err.Error()
	var he *echo.HTTPError
	switch {
	case errors.Is(err, chats.ErrNotFound):
		code = http.StatusNotFound
	case errors.As(err, &he):
		code = he.Code
		msg = fmt.Sprint(he.Message)
	}
	if code >= http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "healthy",
		"provider":  s.client.Provider(),
		"model":     s.client.Model(),
		"timestamp": time.Now().UTC(),
	})
}

type chatSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Messages  int       `json:"messages"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Server) listChats(c echo.Context) error {
	all, err := s.store.List()
	if err != nil {
		return err
	}
	out := make([]chatSummary, 0, len(all))
	for _, ch := range all {
		out = append(out, chatSummary{ID: ch.ID, Name: ch.Name, Messages: len(ch.Messages), UpdatedAt: ch.UpdatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) createChat(c echo.Context) error {
	ch, err := s.store.Create()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ch)
}

func (s *Server) getChat(c echo.Context) error {
	ch, err := s.store.Get(c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ch)
}

type renameRequest struct {
	Name string `json:"name"`
}

func (s *Server) renameChat(c echo.Context) error {
	var req renameRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if strings.TrimSpace(req.Name) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	ch, err := s.store.Rename(c.Param("id"), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ch)
}

func (s *Server) deleteChat(c echo.Context) error {
	id := c.Param("id")
	if err := s.store.Delete(id); err != nil {
		return err
	}
	s.client.Cancel(id)
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) cancelStream(c echo.Context) error {
	if !s.client.Cancel(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "no active stream")
	}
	return c.NoContent(http.StatusNoContent)
}

type messageRequest struct {
	Prompt string `json:"prompt"`
	Web    bool   `json:"web"`
}

type deltaEvent struct {
	Delta string `json:"delta"`
}

type outcomeEvent struct {
	Outcome string `json:"outcome"`
	Marker  string `json:"marker,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (s *Server) postMessage(c echo.Context) error {
	var req messageRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, ai.ErrEmptyPrompt.Error())
	}

	id := c.Param("id")
	ch, err := s.store.Get(id)
	if err != nil {
		return err
	}
	history := ch.History()
	if _, err := s.store.Append(id, chats.Message{Role: ai.RoleUser, Content: prompt}); err != nil {
		return err
	}

	ctx := c.Request().Context()
	sent := prompt
	if req.Web && s.augmenter != nil {
		aug, err := s.augmenter.Augment(ctx, prompt)
		if err != nil {
			s.log.Warn("web search failed", zap.String("chat", id), zap.Error(err))
		} else {
			sent = aug.Prompt
		}
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	out, err := s.client.Ask(ctx, id, sent, history, func(delta string) {
		writeEvent(w, "", deltaEvent{Delta: delta})
	})
	if err != nil {
		out = ai.Outcome{Kind: ai.Failed, Err: err}
	}

	ev := outcomeEvent{Outcome: string(out.Kind), Marker: out.Marker}
	if out.Err != nil {
		ev.Error = out.Err.Error()
	}
	writeEvent(w, "outcome", ev)

	if msg, ok := chats.Reply(out); ok {
		if _, err := s.store.Append(id, msg); err != nil && !errors.Is(err, chats.ErrNotFound) {
			s.log.Warn("failed to save reply", zap.String("chat", id), zap.Error(err))
		}
	}
	if s.OnOutcome != nil {
		s.OnOutcome(out, req.Web)
	}
	return nil
}

func writeEvent(w *echo.Response, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	w.Flush()
}
