package nfc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"gamearbiter/internal/nfc"
	"gamearbiter/internal/request"
)

func record(core, identifier string, tagType byte) []byte {
	buf := make([]byte, nfc.RecordSize)
	copy(buf, "NFC1")
	copy(buf[4:12], core)
	copy(buf[12:28], identifier)
	buf[28] = tagType
	return buf
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    nfc.Tag
	}{
		{
			name:    "record with serial",
			payload: record("PSX", "SLUS-00067", 0),
			want:    nfc.Tag{Format: nfc.FormatRecord, Type: nfc.SingleGame, System: "PSX", IDType: request.IDSerial, Identifier: "SLUS-00067"},
		},
		{
			name:    "record with title and system alias",
			payload: record("SFC", "Super Metroid", 0),
			want:    nfc.Tag{Format: nfc.FormatRecord, Type: nfc.SingleGame, System: "SNES", IDType: request.IDTitle, Identifier: "Super Metroid"},
		},
		{
			name:    "random record ignores identifier",
			payload: record("Genesis", "junk", 2),
			want:    nfc.Tag{Format: nfc.FormatRecord, Type: nfc.RandomGame, System: "Genesis", IDType: request.IDCustom, Identifier: request.KeywordRandom},
		},
		{
			name:    "playlist record",
			payload: record("NES", "rpg-night", 1),
			want:    nfc.Tag{Format: nfc.FormatRecord, Type: nfc.Playlist, System: "NES", IDType: request.IDCustom, Identifier: "rpg-night"},
		},
		{
			name:    "last played",
			payload: record("PSX", "", 3),
			want:    nfc.Tag{Format: nfc.FormatRecord, Type: nfc.LastPlayed, System: "PSX", IDType: request.IDCustom, Identifier: request.KeywordLastPlayed},
		},
		{
			name:    "rom path",
			payload: []byte("/media/fat/games/SNES/Chrono Trigger (USA).sfc\x00\x00"),
			want:    nfc.Tag{Format: nfc.FormatPath, Type: nfc.SingleGame, System: "SNES", IDType: request.IDTitle, Identifier: "Chrono Trigger"},
		},
		{
			name:    "rom path outside games tree",
			payload: []byte("roms/Tekken 3 (Europe).cue"),
			want:    nfc.Tag{Format: nfc.FormatPath, Type: nfc.SingleGame, IDType: request.IDTitle, Identifier: "Tekken 3"},
		},
		{
			name:    "raw text",
			payload: []byte("  Castlevania Symphony of the Night \n"),
			want:    nfc.Tag{Format: nfc.FormatText, Type: nfc.SingleGame, IDType: request.IDTitle, Identifier: "Castlevania Symphony of the Night"},
		},
		{
			name:    "bad magic falls back to text",
			payload: []byte("NFC2 is not a record but it is text"),
			want:    nfc.Tag{Format: nfc.FormatText, Type: nfc.SingleGame, IDType: request.IDTitle, Identifier: "NFC2 is not a record but it is text"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := nfc.Parse(tt.payload)
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("tag mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
	}{
		{name: "empty", payload: nil},
		{name: "padding only", payload: make([]byte, 16)},
		{name: "binary", payload: []byte{0x04, 0xa2, 0x3b, 0xc1, 0xff}},
		{name: "unknown tag type", payload: record("PSX", "SLUS-00067", 9)},
		{name: "empty core", payload: record("", "SLUS-00067", 0)},
		{name: "single game without identifier", payload: record("PSX", "", 0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := nfc.Parse(tt.payload); !errors.Is(err, nfc.ErrUnreadable) {
				t.Fatalf("expected ErrUnreadable, got %v", err)
			}
		})
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	tag := nfc.Tag{Type: nfc.SingleGame, System: "TurboGrafx16", Identifier: "Bonk's Adventure"}
	buf, err := nfc.Encode(tag)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if len(buf) != nfc.RecordSize {
		t.Fatalf("expected %d bytes, got %d", nfc.RecordSize, len(buf))
	}
	if string(buf[4:10]) != "TGFX16" {
		t.Fatalf("expected short core alias, got %q", buf[4:12])
	}
	got, err := nfc.Parse(buf)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got.System != "TurboGrafx16" || got.Identifier != "Bonk's Adventure" || got.IDType != request.IDTitle {
		t.Fatalf("unexpected tag %+v", got)
	}
}

func TestEncodeRejects(t *testing.T) {
	tests := []struct {
		name string
		tag  nfc.Tag
	}{
		{name: "no system", tag: nfc.Tag{Type: nfc.SingleGame, Identifier: "x"}},
		{name: "identifier too long", tag: nfc.Tag{Type: nfc.SingleGame, System: "PSX", Identifier: "Castlevania: Symphony of the Night"}},
		{name: "unknown long core", tag: nfc.Tag{Type: nfc.RandomGame, System: "PlayStation2"}},
		{name: "playlist without name", tag: nfc.Tag{Type: nfc.Playlist, System: "PSX"}},
		{name: "invalid type", tag: nfc.Tag{Type: nfc.TagType(7), System: "PSX"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := nfc.Encode(tt.tag); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestTagRequest(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tag, err := nfc.Parse([]byte("Tekken 3"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := tag.Request("nfc", "", now); !errors.Is(err, request.ErrMalformed) {
		t.Fatalf("expected ErrMalformed without a system, got %v", err)
	}
	req, err := tag.Request("nfc", "PSX", now)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	want := request.GameRequest{System: "PSX", IDType: request.IDTitle, Identifier: "Tekken 3", Source: "nfc", ReceivedAt: now}
	if diff := cmp.Diff(want, req); diff != "" {
		t.Fatalf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTagType(t *testing.T) {
	got, err := nfc.ParseTagType("random_game")
	if err != nil || got != nfc.RandomGame {
		t.Fatalf("ParseTagType = %v, %v", got, err)
	}
	if _, err := nfc.ParseTagType("sometimes"); err == nil {
		t.Fatal("expected error for unknown tag type")
	}
	if nfc.Favorites.String() != "FAVORITES" {
		t.Fatalf("unexpected name %q", nfc.Favorites.String())
	}
}
