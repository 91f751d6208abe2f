package sources

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/request"
)

const maxCommandBytes = 64 * 1024

// Socket serves newline-delimited JSON commands on a unix socket. Every
// command gets exactly one JSON reply line.
type Socket struct {
	path      string
	commander arbiter.Commander
	logger    *slog.Logger
}

// NewSocket builds a command socket at path.
func NewSocket(path string, commander arbiter.Commander, logger *slog.Logger) *Socket {
	return &Socket{
		path:      path,
		commander: commander,
		logger:    logging.NewComponentLogger(logger, "socket").With(logging.String("socket", path)),
	}
}

// Name implements Source.
func (s *Socket) Name() string { return "socket" }

// Run implements Source.
func (s *Socket) Run(ctx context.Context) error {
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", s.path)
	if err != nil {
		return fmt.Errorf("listen on socket: %w", err)
	}
	stop := context.AfterFunc(ctx, func() { _ = listener.Close() })
	defer stop()

	var wg sync.WaitGroup
	defer func() {
		_ = listener.Close()
		wg.Wait()
		if err := os.RemoveAll(s.path); err != nil {
			s.logger.Warn("failed to remove socket",
				logging.Error(err),
				logging.String(logging.FieldEventType, "socket_cleanup_failed"),
				logging.String(logging.FieldImpact, "stale socket may block future starts"),
				logging.String(logging.FieldErrorHint, "remove the socket file manually"),
			)
		}
	}()

	s.logger.Debug("command socket listening")
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "socket_accept_failed"),
				logging.String(logging.FieldImpact, "socket clients may fail to connect"),
				logging.String(logging.FieldErrorHint, "check socket permissions"),
			)
			if !sleep(ctx, 100*time.Millisecond) {
				return nil
			}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.serve(ctx, conn)
		}()
	}
}

func (s *Socket) serve(ctx context.Context, conn net.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer func() {
		stop()
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxCommandBytes)
	enc := json.NewEncoder(conn)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var resp request.Response
		cmd, err := request.DecodeCommand(line)
		if err != nil {
			s.logger.Debug("command rejected", logging.Error(err))
			resp = request.ErrorResponse(err)
		} else {
			resp = s.commander.Handle(ctx, cmd, s.Name())
		}
		if err := enc.Encode(resp); err != nil {
			s.logger.Debug("reply failed", logging.Error(err))
			return
		}
	}
}

// Reply is a decoded command response. Result stays raw so callers pick
// the type matching their command.
type Reply struct {
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Call sends one command to the socket at path and waits for its reply.
func Call(ctx context.Context, path string, cmd request.Command) (Reply, error) {
	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return Reply{}, fmt.Errorf("connect to %s: %w", path, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := json.NewEncoder(conn).Encode(cmd); err != nil {
		return Reply{}, fmt.Errorf("send command: %w", err)
	}
	var reply Reply
	if err := json.NewDecoder(conn).Decode(&reply); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return reply, nil
}
