package sources

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamearbiter/internal/config"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/nfc"
	"gamearbiter/internal/request"
)

// scriptedReader returns one payload per ReadTag call.
type scriptedReader struct {
	payloads [][]byte
	err      error
}

func (r *scriptedReader) ReadTag(context.Context) ([]byte, error) {
	if r.err != nil {
		return nil, r.err
	}
	if len(r.payloads) == 0 {
		return nil, nil
	}
	p := r.payloads[0]
	r.payloads = r.payloads[1:]
	return p, nil
}

type steppedClock struct{ now time.Time }

func (c *steppedClock) Now() time.Time { return c.now }

func (c *steppedClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestNFC(t *testing.T, mode string, payloads ...[]byte) (*NFC, *fakeSink, *fakeExiter, *steppedClock) {
	t.Helper()
	sink := &fakeSink{}
	exiter := &fakeExiter{}
	cfg := config.NFCSource{
		Name:          "nfc0",
		DefaultSystem: "PSX",
		Mode:          mode,
		PollMS:        100,
		DebounceMS:    100,
		CooldownMS:    1000,
		RemovalMS:     300,
	}
	src, err := NewNFC(cfg, &scriptedReader{payloads: payloads}, sink, exiter, logging.NewNop())
	if err != nil {
		t.Fatalf("NewNFC: %v", err)
	}
	clock := &steppedClock{now: time.Unix(1_700_000_000, 0)}
	src.now = clock.Now
	return src, sink, exiter, clock
}

func TestNFCTapEmitsOncePerPresentation(t *testing.T) {
	tag := []byte("Castlevania")
	src, sink, _, clock := newTestNFC(t, config.ModeTap, tag, tag, tag, nil, tag, tag)
	ctx := context.Background()

	for range 3 {
		src.step(ctx)
		clock.advance(100 * time.Millisecond)
	}
	reqs := sink.requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests after a held tag, want 1", len(reqs))
	}
	if reqs[0].System != "PSX" || reqs[0].IDType != request.IDTitle || reqs[0].Identifier != "Castlevania" || reqs[0].Source != "nfc0" {
		t.Fatalf("request = %+v", reqs[0])
	}

	// Lifted and re-presented inside the cooldown: a bounce.
	for range 3 {
		src.step(ctx)
		clock.advance(100 * time.Millisecond)
	}
	if n := len(sink.requests()); n != 1 {
		t.Fatalf("got %d requests after a bounce, want 1", n)
	}
}

func TestNFCHoldExitsWhenTagRemoved(t *testing.T) {
	rec, err := nfc.Encode(nfc.Tag{Type: nfc.SingleGame, System: "PSX", Identifier: "SLUS-00067"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	src, sink, exiter, clock := newTestNFC(t, config.ModeHold, rec, rec)
	ctx := context.Background()

	src.step(ctx)
	clock.advance(100 * time.Millisecond)
	src.step(ctx)
	reqs := sink.requests()
	if len(reqs) != 1 || reqs[0].IDType != request.IDSerial || reqs[0].Identifier != "SLUS-00067" {
		t.Fatalf("requests = %+v", reqs)
	}

	clock.advance(100 * time.Millisecond)
	src.step(ctx)
	if calls := exiter.calls(); len(calls) != 0 {
		t.Fatalf("exited before the removal timeout: %v", calls)
	}
	clock.advance(300 * time.Millisecond)
	src.step(ctx)
	if calls := exiter.calls(); len(calls) != 1 || calls[0] != "nfc0" {
		t.Fatalf("exit calls = %v, want [nfc0]", calls)
	}
}

func TestNFCIgnoresUnreadableTags(t *testing.T) {
	junk := []byte{0x01, 0x02, 0x03}
	src, sink, _, clock := newTestNFC(t, config.ModeTap, junk, junk)
	src.step(context.Background())
	clock.advance(100 * time.Millisecond)
	src.step(context.Background())
	if n := len(sink.requests()); n != 0 {
		t.Fatalf("got %d requests from junk, want 0", n)
	}
}

func TestNFCReadErrorsDoNotEmit(t *testing.T) {
	sink := &fakeSink{}
	src, err := NewNFC(config.NFCSource{Name: "nfc0", Mode: config.ModeTap, PollMS: 100},
		&scriptedReader{err: errors.New("i2c timeout")}, sink, nil, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	src.step(context.Background())
	src.step(context.Background())
	if !src.warn.failing {
		t.Fatal("expected the transport to be marked failing")
	}
	if n := len(sink.requests()); n != 0 {
		t.Fatalf("got %d requests, want 0", n)
	}
}

func TestFileTagReaderTreatsMissingAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tag")
	r := FileTagReader{Path: path}
	if p, err := r.ReadTag(context.Background()); p != nil || err != nil {
		t.Fatalf("missing file: payload=%v err=%v", p, err)
	}
	if err := os.WriteFile(path, []byte("Chrono Trigger"), 0o644); err != nil {
		t.Fatal(err)
	}
	if p, err := r.ReadTag(context.Background()); string(p) != "Chrono Trigger" || err != nil {
		t.Fatalf("payload=%q err=%v", p, err)
	}
}

func TestGPIODebouncesPresses(t *testing.T) {
	value := filepath.Join(t.TempDir(), "value")
	setPin := func(v string) {
		if err := os.WriteFile(value, []byte(v+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	sink := &fakeSink{}
	src, err := NewGPIO(config.GPIOSource{
		Name:       "button",
		ValuePath:  value,
		ActiveLow:  true,
		System:     "SNES",
		IDType:     "custom",
		Identifier: request.KeywordRandom,
		PollMS:     20,
		DebounceMS: 40,
		CooldownMS: 500,
	}, sink, logging.NewNop())
	if err != nil {
		t.Fatalf("NewGPIO: %v", err)
	}
	clock := &steppedClock{now: time.Unix(1_700_000_000, 0)}
	src.now = clock.Now

	// Active low: "0" is pressed.
	setPin("0")
	src.step()
	clock.advance(20 * time.Millisecond)
	src.step()
	if n := len(sink.requests()); n != 0 {
		t.Fatalf("accepted before debounce: %d", n)
	}
	clock.advance(20 * time.Millisecond)
	src.step()
	clock.advance(20 * time.Millisecond)
	src.step()
	reqs := sink.requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests, want 1", len(reqs))
	}
	if reqs[0].Identifier != request.KeywordRandom || reqs[0].Source != "button" || !reqs[0].ReceivedAt.Equal(clock.now.Add(-20*time.Millisecond)) {
		t.Fatalf("request = %+v", reqs[0])
	}

	setPin("1")
	src.step()
	if n := len(sink.requests()); n != 1 {
		t.Fatalf("release emitted a request: %d", n)
	}
}

func TestGPIORejectsGarbage(t *testing.T) {
	value := filepath.Join(t.TempDir(), "value")
	if err := os.WriteFile(value, []byte("high"), 0o644); err != nil {
		t.Fatal(err)
	}
	g := &GPIO{path: value}
	if _, err := g.read(); err == nil {
		t.Fatal("expected error for a non-binary pin value")
	}
}
