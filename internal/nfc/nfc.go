package nfc

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"gamearbiter/internal/region"
	"gamearbiter/internal/request"
	"gamearbiter/internal/systems"
)

// RecordSize is the length of an NFC1 record.
const RecordSize = 32

const (
	coreSize       = 8
	identifierSize = 16
)

var magic = [4]byte{'N', 'F', 'C', '1'}

// ErrUnreadable is returned when no payload format matches.
var ErrUnreadable = errors.New("unreadable tag payload")

// TagType is the behaviour byte of an NFC1 record.
type TagType uint8

const (
	SingleGame TagType = iota
	Playlist
	RandomGame
	LastPlayed
	Favorites
)

var tagTypeNames = [...]string{"SINGLE_GAME", "PLAYLIST", "RANDOM_GAME", "LAST_PLAYED", "FAVORITES"}

func (t TagType) String() string {
	if t.Valid() {
		return tagTypeNames[t]
	}
	return fmt.Sprintf("TagType(%d)", uint8(t))
}

// Valid reports whether t is a declared tag type.
func (t TagType) Valid() bool {
	return int(t) < len(tagTypeNames)
}

// ParseTagType accepts the upper-case names, case-insensitively.
func ParseTagType(value string) (TagType, error) {
	value = strings.ToUpper(strings.TrimSpace(value))
	for i, name := range tagTypeNames {
		if name == value {
			return TagType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown tag type %q", value)
}

// Format records which decoder understood a payload.
type Format int

const (
	FormatRecord Format = iota + 1
	FormatPath
	FormatText
)

func (f Format) String() string {
	switch f {
	case FormatRecord:
		return "record"
	case FormatPath:
		return "path"
	case FormatText:
		return "text"
	default:
		return "unknown"
	}
}

// Tag is a decoded payload. System may be empty for path and text payloads
// that carry no system hint.
type Tag struct {
	Format     Format
	Type       TagType
	System     string
	IDType     request.IDType
	Identifier string
}

// record mirrors the on-tag layout.
type record struct {
	Magic      [4]byte
	Core       [coreSize]byte
	Identifier [identifierSize]byte
	Type       uint8
	Reserved   [3]byte
}

var serialPattern = regexp.MustCompile(`^[A-Z]{4}[-_ ]?\d{3}\.?\d{2}$`)

// Parse decodes a tag payload. Formats are tried in a fixed order: NFC1
// record, ROM path, raw text.
func Parse(payload []byte) (Tag, error) {
	if len(payload) >= RecordSize && bytes.Equal(payload[:4], magic[:]) {
		return parseRecord(payload[:RecordSize])
	}

	text := strings.TrimSpace(strings.TrimRight(string(payload), "\x00"))
	if text == "" {
		return Tag{}, fmt.Errorf("%w: empty", ErrUnreadable)
	}
	if !printable(text) {
		return Tag{}, fmt.Errorf("%w: %d bytes of binary data", ErrUnreadable, len(payload))
	}
	if tag, ok := parsePath(text); ok {
		return tag, nil
	}
	return Tag{Format: FormatText, Type: SingleGame, IDType: request.IDTitle, Identifier: text}, nil
}

func parseRecord(buf []byte) (Tag, error) {
	var rec record
	if _, err := binary.Decode(buf, binary.LittleEndian, &rec); err != nil {
		return Tag{}, fmt.Errorf("decode record: %w", err)
	}
	tagType := TagType(rec.Type)
	if !tagType.Valid() {
		return Tag{}, fmt.Errorf("%w: tag type %d", ErrUnreadable, rec.Type)
	}
	core := cString(rec.Core[:])
	if core == "" {
		return Tag{}, fmt.Errorf("%w: empty core name", ErrUnreadable)
	}
	tag := Tag{
		Format: FormatRecord,
		Type:   tagType,
		System: systems.Canonical(core),
	}
	identifier := cString(rec.Identifier[:])

	switch tagType {
	case SingleGame:
		if identifier == "" {
			return Tag{}, fmt.Errorf("%w: empty identifier", ErrUnreadable)
		}
		tag.Identifier = identifier
		tag.IDType = request.IDTitle
		if serialPattern.MatchString(identifier) {
			tag.IDType = request.IDSerial
		}
	case Playlist:
		if identifier == "" {
			return Tag{}, fmt.Errorf("%w: empty playlist name", ErrUnreadable)
		}
		tag.IDType = request.IDCustom
		tag.Identifier = identifier
	case RandomGame:
		tag.IDType = request.IDCustom
		tag.Identifier = request.KeywordRandom
	case LastPlayed:
		tag.IDType = request.IDCustom
		tag.Identifier = request.KeywordLastPlayed
	case Favorites:
		tag.IDType = request.IDCustom
		tag.Identifier = request.KeywordFavorites
	}
	return tag, nil
}

func parsePath(text string) (Tag, bool) {
	if !strings.ContainsAny(text, `/\`) {
		return Tag{}, false
	}
	clean := filepath.ToSlash(strings.ReplaceAll(text, `\`, "/"))
	ext := filepath.Ext(clean)
	if ext == "" {
		return Tag{}, false
	}
	stem := strings.TrimSuffix(filepath.Base(clean), ext)
	title := region.StripTags(stem)
	if title == "" {
		return Tag{}, false
	}
	tag := Tag{Format: FormatPath, Type: SingleGame, IDType: request.IDTitle, Identifier: title}
	if sys, ok := systems.FromPath(clean); ok {
		tag.System = sys.ID
	}
	return tag, true
}

// Request maps the tag onto a GameRequest. defaultSystem fills in when the
// payload names none.
func (t Tag) Request(source, defaultSystem string, now time.Time) (request.GameRequest, error) {
	system := t.System
	if system == "" {
		system = defaultSystem
	}
	if system == "" {
		return request.GameRequest{}, fmt.Errorf("%w: tag %q has no system and no default is configured", request.ErrMalformed, t.Identifier)
	}
	return request.New(system, t.IDType, t.Identifier, source, now)
}

// Encode renders an NFC1 record. Only the record format can be encoded.
func Encode(t Tag) ([]byte, error) {
	if !t.Type.Valid() {
		return nil, fmt.Errorf("encode: invalid tag type %d", uint8(t.Type))
	}
	core, err := coreName(t.System)
	if err != nil {
		return nil, err
	}
	identifier := t.Identifier
	if t.Type != SingleGame && t.Type != Playlist {
		identifier = ""
	}
	if len(identifier) > identifierSize {
		return nil, fmt.Errorf("encode: identifier %q exceeds %d bytes", identifier, identifierSize)
	}
	if (t.Type == SingleGame || t.Type == Playlist) && identifier == "" {
		return nil, fmt.Errorf("encode: %s tag needs an identifier", t.Type)
	}

	rec := record{Magic: magic, Type: uint8(t.Type)}
	copy(rec.Core[:], core)
	copy(rec.Identifier[:], identifier)

	buf := make([]byte, RecordSize)
	if _, err := binary.Encode(buf, binary.LittleEndian, &rec); err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return buf, nil
}

// coreName picks a name that fits the core field: the system ID, or the
// first alias short enough.
func coreName(system string) (string, error) {
	system = strings.TrimSpace(system)
	if system == "" {
		return "", errors.New("encode: system is required")
	}
	sys, ok := systems.Lookup(system)
	if !ok {
		if len(system) > coreSize {
			return "", fmt.Errorf("encode: core name %q exceeds %d bytes", system, coreSize)
		}
		return system, nil
	}
	if len(sys.ID) <= coreSize {
		return sys.ID, nil
	}
	for _, alias := range sys.Aliases {
		if len(alias) <= coreSize {
			return alias, nil
		}
	}
	return "", fmt.Errorf("encode: no core name for %s fits %d bytes", sys.ID, coreSize)
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

func printable(s string) bool {
	if !utf8.ValidString(s) {
		return false
	}
	for _, r := range s {
		if !unicode.IsPrint(r) && r != '\t' {
			return false
		}
	}
	return true
}
