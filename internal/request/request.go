package request

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed marks a request record that could not be parsed.
var ErrMalformed = errors.New("malformed request")

// Custom identifiers the arbiter resolves without a catalog alias.
const (
	KeywordRandom     = "random"
	KeywordLastPlayed = "last_played"
	KeywordFavorites  = "favorites"
)

// IDType identifies how a request's identifier should be resolved.
type IDType int

const (
	IDSerial IDType = iota + 1
	IDTitle
	IDUUID
	IDHash
	IDBarcode
	IDCustom
)

var idTypeNames = map[IDType]string{
	IDSerial:  "serial",
	IDTitle:   "title",
	IDUUID:    "uuid",
	IDHash:    "hash",
	IDBarcode: "barcode",
	IDCustom:  "custom",
}

// AllIDTypes lists every identifier kind in wire order.
func AllIDTypes() []IDType {
	return []IDType{IDSerial, IDTitle, IDUUID, IDHash, IDBarcode, IDCustom}
}

func (t IDType) String() string {
	if name, ok := idTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("IDType(%d)", int(t))
}

// Valid reports whether t is one of the declared identifier kinds.
func (t IDType) Valid() bool {
	_, ok := idTypeNames[t]
	return ok
}

// ParseIDType converts a wire name to an IDType, case-insensitively.
func ParseIDType(value string) (IDType, error) {
	value = strings.ToLower(strings.TrimSpace(value))
	for t, name := range idTypeNames {
		if name == value {
			return t, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown id_type %q", ErrMalformed, value)
}

// MarshalText implements encoding.TextMarshaler.
func (t IDType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: invalid id_type %d", ErrMalformed, int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *IDType) UnmarshalText(text []byte) error {
	parsed, err := ParseIDType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// GameRequest is one producer's ask to launch a game. Values are immutable
// once built; pass them by value.
type GameRequest struct {
	System     string    `json:"system"`
	IDType     IDType    `json:"id_type"`
	Identifier string    `json:"identifier"`
	Source     string    `json:"source"`
	ReceivedAt time.Time `json:"received_at"`
}

// New builds a validated request.
func New(system string, idType IDType, identifier, source string, now time.Time) (GameRequest, error) {
	req := GameRequest{
		System:     strings.TrimSpace(system),
		IDType:     idType,
		Identifier: strings.TrimSpace(identifier),
		Source:     strings.TrimSpace(source),
		ReceivedAt: now,
	}
	if err := req.Validate(); err != nil {
		return GameRequest{}, err
	}
	return req, nil
}

// Validate checks required fields.
func (r GameRequest) Validate() error {
	switch {
	case r.System == "":
		return fmt.Errorf("%w: system is empty", ErrMalformed)
	case !r.IDType.Valid():
		return fmt.Errorf("%w: invalid id_type", ErrMalformed)
	case r.Identifier == "":
		return fmt.Errorf("%w: identifier is empty", ErrMalformed)
	}
	return nil
}

// WithSource returns a copy stamped with a different source name.
func (r GameRequest) WithSource(source string) GameRequest {
	r.Source = source
	return r
}

func (r GameRequest) String() string {
	return FormatLine(r)
}
