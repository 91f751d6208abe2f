package arbiter

import (
	"context"
	"errors"

	"gamearbiter/internal/request"
)

// Commander answers structured JSON commands. Socket and WebSocket clients
// share it.
type Commander interface {
	Handle(ctx context.Context, cmd request.Command, fallbackSource string) request.Response
}

// ExitResult is the reply to exit_game.
type ExitResult struct {
	Exited bool   `json:"exited"`
	Source string `json:"source,omitempty"`
}

// Handle executes cmd. find_game waits for the decision, never for the launch.
func (a *Arbiter) Handle(ctx context.Context, cmd request.Command, fallbackSource string) request.Response {
	switch cmd.Command {
	case request.CmdFindGame:
		req, err := cmd.Request(fallbackSource, a.now())
		if err != nil {
			return request.ErrorResponse(err)
		}
		res, err := a.Submit(ctx, req)
		if err != nil {
			return request.ErrorResponse(err)
		}
		return request.Response{Result: res}

	case request.CmdSelectGame:
		if cmd.Index == nil {
			return request.ErrorResponse(&request.CommandError{Message: "select_game requires index"})
		}
		res, err := a.Choose(ctx, *cmd.Index)
		if err != nil {
			return request.ErrorResponse(err)
		}
		return request.Response{Result: res}

	case request.CmdExitGame:
		source := cmd.Source
		if err := a.Exit(ctx, source); err != nil {
			if errors.Is(err, ErrNothingRunning) {
				return request.Response{Result: ExitResult{Source: source}}
			}
			return request.ErrorResponse(err)
		}
		return request.Response{Result: ExitResult{Exited: true, Source: source}}

	case request.CmdStatus:
		return request.Response{Result: a.Status()}

	default:
		return request.ErrorResponse(&request.CommandError{Message: "Unknown command: " + cmd.Command})
	}
}
