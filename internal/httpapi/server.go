package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"golang.org/x/net/websocket"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/config"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const (
	sourceHTTP      = "http"
	sourceWebSocket = "ws"
	maxBodyBytes    = 64 * 1024
	shutdownTimeout = 5 * time.Second
)

// Backend is the slice of the arbiter the API serves.
type Backend interface {
	arbiter.Commander
	Status() arbiter.Status
}

// Server exposes the arbiter over HTTP and WebSocket.
type Server struct {
	bind    string
	token   string
	rpm     int
	backend Backend
	metrics http.Handler
	hub     *Hub
	logger  *slog.Logger
}

// New builds a server. hub and metrics may be nil.
func New(cfg config.API, backend Backend, hub *Hub, metrics http.Handler, logger *slog.Logger) *Server {
	logger = logging.NewComponentLogger(logger, "api")
	if hub == nil {
		hub = NewHub(logger)
	}
	return &Server{
		bind:    cfg.Bind,
		token:   cfg.Token,
		rpm:     cfg.RequestsPerMinute,
		backend: backend,
		metrics: metrics,
		hub:     hub,
		logger:  logger,
	}
}

// Hub returns the WebSocket hub so prompts can be broadcast to clients.
func (s *Server) Hub() *Hub { return s.hub }

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(authMiddleware(s.token))

	r.Group(func(r chi.Router) {
		if s.rpm > 0 {
			r.Use(rateLimit(s.rpm, time.Minute))
		}
		r.Get("/api/status", s.handleStatus)
		r.Post("/api/requests", s.handleRequest)
	})
	r.Get("/ws", s.handleWebSocket)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	return r
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	return s.Serve(ctx, listener)
}

// Serve serves on listener until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(listener)
	}()
	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))

	select {
	case err := <-errCh:
		s.hub.CloseAll()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("api serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	err := server.Shutdown(shutdownCtx)
	// Hijacked WebSocket connections are not tracked by Shutdown.
	s.hub.CloseAll()
	<-errCh
	if err != nil {
		return fmt.Errorf("api shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.backend.Status())
}

// handleRequest accepts either a JSON command or plain-text request lines.
// Text lines are submitted as find_game and answered with one response each.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body failed")
		return
	}
	if len(body) > maxBodyBytes {
		s.writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	if isJSON(r.Header.Get("Content-Type")) {
		cmd, err := request.DecodeCommand(body)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, request.ErrorResponse(err))
			return
		}
		resp := s.backend.Handle(r.Context(), cmd, sourceHTTP)
		s.writeJSON(w, statusFor(resp), resp)
		return
	}

	var responses []request.Response
	for _, line := range strings.Split(string(body), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		req, err := request.ParseLine(line, time.Now())
		if err != nil {
			responses = append(responses, request.ErrorResponse(err))
			continue
		}
		responses = append(responses, s.backend.Handle(r.Context(), request.FindGame(req), sourceHTTP))
	}
	switch len(responses) {
	case 0:
		s.writeError(w, http.StatusBadRequest, "no request lines")
	case 1:
		s.writeJSON(w, statusFor(responses[0]), responses[0])
	default:
		s.writeJSON(w, http.StatusOK, responses)
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	srv := websocket.Server{
		// Non-browser clients send no Origin; auth is the bearer token.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler: func(ws *websocket.Conn) {
			streamLogs, _ := strconv.ParseBool(r.URL.Query().Get("logs"))
			s.serveWebSocket(r.Context(), ws, streamLogs)
		},
	}
	srv.ServeHTTP(w, r)
}

func (s *Server) serveWebSocket(ctx context.Context, ws *websocket.Conn, streamLogs bool) {
	client := s.hub.add(ws, streamLogs)
	defer s.hub.remove(client)

	for {
		var msg string
		if err := websocket.Message.Receive(ws, &msg); err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("websocket receive failed", logging.Error(err))
			}
			return
		}
		var resp request.Response
		cmd, err := request.DecodeCommand([]byte(msg))
		if err != nil {
			resp = request.ErrorResponse(err)
		} else {
			resp = s.backend.Handle(ctx, cmd, sourceWebSocket)
		}
		if err := client.send(resp); err != nil {
			s.logger.Debug("websocket reply failed", logging.Error(err))
			return
		}
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}

func statusFor(resp request.Response) int {
	if resp.Error != "" {
		return http.StatusBadRequest
	}
	return http.StatusOK
}

func isJSON(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

// authMiddleware validates bearer tokens. An empty token disables auth.
// WebSocket clients that cannot set headers may pass ?token=.
func authMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				got = r.URL.Query().Get("token")
			}
			if got != token {
				http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimit(limit int, window time.Duration) func(http.Handler) http.Handler {
	return httprate.Limit(
		limit,
		window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate_limit_exceeded"}`))
		}),
	)
}
