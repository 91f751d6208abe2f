package arbiter_test

import (
	"encoding/json"
	"testing"

	"gamearbiter/internal/arbiter"
)

func TestOutcomeTextRoundTrip(t *testing.T) {
	for _, want := range []arbiter.Outcome{arbiter.Accepted, arbiter.Busy, arbiter.NotFound, arbiter.Ambiguous} {
		data, err := json.Marshal(want)
		if err != nil {
			t.Fatalf("marshal %s: %v", want, err)
		}
		var got arbiter.Outcome
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if got != want {
			t.Fatalf("round trip = %s, want %s", got, want)
		}
	}
}

func TestOutcomeRejectsUnknownText(t *testing.T) {
	for _, text := range []string{"", "unknown", "ACCEPTED", "launched"} {
		var got arbiter.Outcome
		if err := got.UnmarshalText([]byte(text)); err == nil {
			t.Fatalf("UnmarshalText(%q) = %s, want error", text, got)
		}
	}

	var res arbiter.Result
	if err := json.Unmarshal([]byte(`{"outcome":"exploded"}`), &res); err == nil {
		t.Fatal("expected decode error for unknown outcome")
	}
}
