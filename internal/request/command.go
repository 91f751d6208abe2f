package request

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Command names accepted on the structured JSON channel.
const (
	CmdFindGame   = "find_game"
	CmdSelectGame = "select_game"
	CmdExitGame   = "exit_game"
	CmdStatus     = "status"
)

// Error texts external clients match on.
const (
	msgInvalidJSON    = "Invalid JSON"
	msgUnknownCommand = "Unknown command: "
)

// Command is the structured request variant.
type Command struct {
	Command    string `json:"command"`
	System     string `json:"system,omitempty"`
	IDType     string `json:"id_type,omitempty"`
	Identifier string `json:"identifier,omitempty"`
	Source     string `json:"source,omitempty"`
	Index      *int   `json:"index,omitempty"`
}

// CommandError carries the client-facing error text of a rejected command.
type CommandError struct {
	Message string
}

func (e *CommandError) Error() string { return e.Message }

func (e *CommandError) Unwrap() error { return ErrMalformed }

// Response is the JSON envelope written back to command clients.
type Response struct {
	Error  string `json:"error,omitempty"`
	Result any    `json:"result,omitempty"`
}

// ErrorResponse wraps err for the wire. CommandError text is passed through
// unchanged so the documented contracts hold.
func ErrorResponse(err error) Response {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return Response{Error: cmdErr.Message}
	}
	return Response{Error: err.Error()}
}

// DecodeCommand parses a JSON command and rejects unknown command names.
func DecodeCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, &CommandError{Message: msgInvalidJSON}
	}
	switch cmd.Command {
	case CmdFindGame, CmdSelectGame, CmdExitGame, CmdStatus:
		return cmd, nil
	default:
		return Command{}, &CommandError{Message: msgUnknownCommand + cmd.Command}
	}
}

// Request converts a find_game command into a GameRequest. fallbackSource is
// used when the command does not name its own source.
func (c Command) Request(fallbackSource string, now time.Time) (GameRequest, error) {
	if c.Command != CmdFindGame {
		return GameRequest{}, fmt.Errorf("%w: %s is not a find_game command", ErrMalformed, c.Command)
	}
	idType, err := ParseIDType(c.IDType)
	if err != nil {
		return GameRequest{}, err
	}
	source := c.Source
	if source == "" {
		source = fallbackSource
	}
	return New(c.System, idType, c.Identifier, source, now)
}

// FindGame builds a find_game command from a request.
func FindGame(r GameRequest) Command {
	return Command{
		Command:    CmdFindGame,
		System:     r.System,
		IDType:     r.IDType.String(),
		Identifier: r.Identifier,
		Source:     r.Source,
	}
}
