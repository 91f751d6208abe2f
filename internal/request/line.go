package request

import (
	"fmt"
	"strings"
	"time"
)

// ParseLine decodes a "system:id_type:identifier:source" record. The
// identifier may itself contain colons; the source is whatever follows the
// last colon.
func ParseLine(line string, now time.Time) (GameRequest, error) {
	line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
	if line == "" {
		return GameRequest{}, fmt.Errorf("%w: empty line", ErrMalformed)
	}

	system, rest, ok := strings.Cut(line, ":")
	if !ok {
		return GameRequest{}, fmt.Errorf("%w: %q: missing id_type", ErrMalformed, line)
	}
	rawType, rest, ok := strings.Cut(rest, ":")
	if !ok {
		return GameRequest{}, fmt.Errorf("%w: %q: missing identifier", ErrMalformed, line)
	}
	sep := strings.LastIndex(rest, ":")
	if sep < 0 {
		return GameRequest{}, fmt.Errorf("%w: %q: missing source", ErrMalformed, line)
	}
	identifier, source := rest[:sep], rest[sep+1:]

	idType, err := ParseIDType(rawType)
	if err != nil {
		return GameRequest{}, fmt.Errorf("%q: %w", line, err)
	}
	if strings.TrimSpace(source) == "" {
		return GameRequest{}, fmt.Errorf("%w: %q: empty source", ErrMalformed, line)
	}
	return New(system, idType, identifier, source, now)
}

// FormatLine renders a request in the pipe line format.
func FormatLine(r GameRequest) string {
	return strings.Join([]string{r.System, r.IDType.String(), r.Identifier, r.Source}, ":")
}
