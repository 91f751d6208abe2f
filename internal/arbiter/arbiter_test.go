package arbiter_test

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"gamearbiter/internal/arbiter"
	"gamearbiter/internal/catalog"
	"gamearbiter/internal/launcher"
	"gamearbiter/internal/logging"
	"gamearbiter/internal/notifications"
	"gamearbiter/internal/request"
	"gamearbiter/internal/testsupport"
)

// memCatalog is an in-memory Catalog.
type memCatalog struct {
	entries []catalog.Entry
	err     error
}

func (m *memCatalog) BySerial(_ context.Context, system, serial string) ([]catalog.Entry, error) {
	var out []catalog.Entry
	for _, e := range m.entries {
		if strings.EqualFold(e.System, system) && e.Serial == serial {
			out = append(out, e)
		}
	}
	return out, m.err
}

func (m *memCatalog) ByAlias(_ context.Context, system string, idType request.IDType, identifier string) ([]catalog.Entry, error) {
	want := catalog.NormalizeAlias(idType, identifier)
	var out []catalog.Entry
	for _, e := range m.entries {
		if !strings.EqualFold(e.System, system) {
			continue
		}
		for _, alias := range e.Aliases {
			if alias.IDType == idType.String() && catalog.NormalizeAlias(idType, alias.Identifier) == want {
				out = append(out, e)
				break
			}
		}
	}
	return out, m.err
}

func (m *memCatalog) BySystem(_ context.Context, system string) ([]catalog.Entry, error) {
	var out []catalog.Entry
	for _, e := range m.entries {
		if strings.EqualFold(e.System, system) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, m.err
}

// fakeLauncher blocks each launch until release is closed (when set) and
// records directives.
type fakeLauncher struct {
	release chan struct{}
	started chan launcher.Directive

	mu       sync.Mutex
	launched []launcher.Directive
	exits    int
}

func newFakeLauncher(gated bool) *fakeLauncher {
	l := &fakeLauncher{started: make(chan launcher.Directive, 8)}
	if gated {
		l.release = make(chan struct{})
	}
	return l
}

func (l *fakeLauncher) Launch(ctx context.Context, d launcher.Directive) error {
	l.mu.Lock()
	l.launched = append(l.launched, d)
	l.mu.Unlock()
	l.started <- d
	if l.release == nil {
		return nil
	}
	select {
	case <-l.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *fakeLauncher) Exit(context.Context) error {
	l.mu.Lock()
	l.exits++
	l.mu.Unlock()
	return nil
}

func (l *fakeLauncher) Launched() []launcher.Directive {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]launcher.Directive(nil), l.launched...)
}

func (l *fakeLauncher) Exits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.exits
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notifications.Event
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, _ notifications.Payload) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *recordingNotifier) has(event notifications.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == event {
			return true
		}
	}
	return false
}

type harness struct {
	arb      *arbiter.Arbiter
	launcher *fakeLauncher
	notes    *recordingNotifier
	prompts  chan arbiter.Prompt
	cancel   context.CancelFunc
	done     chan error
}

func defaultConfig() arbiter.Config {
	return arbiter.Config{
		MatchThreshold:   30,
		AmbiguityMargin:  1,
		PreferredRegion:  "USA",
		QueueSize:        8,
		LaunchTimeout:    2 * time.Second,
		SelectionTimeout: 2 * time.Second,
	}
}

func start(t *testing.T, cat arbiter.Catalog, cfg arbiter.Config, l *fakeLauncher, opts ...arbiter.Option) *harness {
	t.Helper()
	h := &harness{
		launcher: l,
		notes:    &recordingNotifier{},
		prompts:  make(chan arbiter.Prompt, 4),
		done:     make(chan error, 1),
	}
	selector := arbiter.SelectorFunc(func(_ context.Context, p arbiter.Prompt) error {
		h.prompts <- p
		return nil
	})
	h.arb = arbiter.New(cfg, cat, l, h.notes, selector, logging.NewNop(), nil, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.done <- h.arb.Run(ctx) }()
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	if h.launcher.release != nil {
		select {
		case <-h.launcher.release:
		default:
			close(h.launcher.release)
		}
	}
	h.cancel()
	select {
	case err := <-h.done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("arbiter did not stop")
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func mustRequest(t *testing.T, line string) request.GameRequest {
	t.Helper()
	req, err := request.ParseLine(line, time.Now())
	if err != nil {
		t.Fatalf("ParseLine(%q): %v", line, err)
	}
	return req
}

func submit(t *testing.T, a *arbiter.Arbiter, line string) arbiter.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	res, err := a.Submit(ctx, mustRequest(t, line))
	if err != nil {
		t.Fatalf("Submit(%q): %v", line, err)
	}
	return res
}

var psxCatalog = []catalog.Entry{
	{Title: "Castlevania: Symphony of the Night", System: "PSX", Serial: "SLUS-00067", Region: "USA", Path: "/games/PSX/sotn.cue",
		Aliases: []catalog.Alias{{IDType: "uuid", Identifier: "04:A2:3B:C1"}}},
	{Title: "Tekken 3", System: "PSX", Serial: "SCUS-94300", Region: "USA", Path: "/games/PSX/tekken3.cue"},
	{Title: "Tekken 3", System: "PSX", Serial: "SCES-01237", Region: "Europe", Path: "/games/PSX/tekken3-eu.cue"},
	{Title: "Street Fighter Alpha 2", System: "PSX", Region: "USA"},
	{Title: "Street Fighter Alpha 3", System: "PSX", Region: "USA"},
}

func TestSingleFlight(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	orders := [][2]string{
		{"PSX:serial:SLUS-00067:nfc", "PSX:title:Tekken 3:gpio17"},
		{"PSX:title:Tekken 3:gpio17", "PSX:serial:SLUS-00067:nfc"},
	}
	for _, order := range orders {
		l := newFakeLauncher(true)
		h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l)

		results := make(chan arbiter.Result, 2)
		var wg sync.WaitGroup
		for _, line := range order {
			wg.Add(1)
			req := mustRequest(t, line)
			go func() {
				defer wg.Done()
				res, err := h.arb.Submit(context.Background(), req)
				if err != nil {
					t.Errorf("Submit(%s): %v", req, err)
				}
				results <- res
			}()
		}
		wg.Wait()
		close(results)

		counts := map[arbiter.Outcome]int{}
		for res := range results {
			counts[res.Outcome]++
		}
		if counts[arbiter.Accepted] != 1 || counts[arbiter.Busy] != 1 {
			t.Fatalf("order %v: expected one accepted and one busy, got %v", order, counts)
		}

		close(l.release)
		waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
		if got := len(l.Launched()); got != 1 {
			t.Fatalf("expected exactly one launch, got %d", got)
		}
		h.stop(t)
	}
}

func TestBusyWhileLaunching(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newFakeLauncher(true)
	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l)
	defer h.stop(t)

	if res := submit(t, h.arb, "PSX:serial:SLUS-00067:nfc"); res.Outcome != arbiter.Accepted {
		t.Fatalf("expected accepted, got %s", res.Outcome)
	}
	<-l.started
	if got := h.arb.Status(); got.Phase != arbiter.PhaseLaunching || got.Request == nil || got.Request.Source != "nfc" {
		t.Fatalf("unexpected status %+v", got)
	}
	if res := submit(t, h.arb, "PSX:serial:SLUS-00067:nfc"); res.Outcome != arbiter.Busy {
		t.Fatalf("expected busy, got %s", res.Outcome)
	}

	close(l.release)
	waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
	waitFor(t, "launch notification", func() bool { return h.notes.has(notifications.EventLaunched) })

	status := h.arb.Status()
	if status.LastLaunch == nil || status.LastLaunch.Directive.Serial != "SLUS-00067" {
		t.Fatalf("unexpected last launch %+v", status.LastLaunch)
	}
	if status.Stats.Accepted != 1 || status.Stats.Busy != 1 {
		t.Fatalf("unexpected stats %+v", status.Stats)
	}
}

func TestEndToEndMisspelledTitle(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.Seed(t, store,
		catalog.Entry{Title: "Castlevania: Symphony of the Night", System: "PSX", Serial: "SLUS-00067", Region: "USA"},
		catalog.Entry{Title: "Castlevania: Bloodlines", System: "PSX", Region: "USA"},
		catalog.Entry{Title: "Tekken 3", System: "PSX", Region: "USA"},
	)
	defer goleak.VerifyNone(t,
		goleak.IgnoreCurrent(),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionCleaner"),
	)

	l := newFakeLauncher(false)
	h := start(t, store, arbiter.ConfigFrom(cfg), l)
	defer h.stop(t)

	res := submit(t, h.arb, "PSX:title:Castlevania Symphny of teh Nite:test")
	if res.Outcome != arbiter.Accepted {
		t.Fatalf("expected accepted, got %s (%s)", res.Outcome, res.Reason)
	}
	if res.Entry == nil || res.Entry.Title != "Castlevania: Symphony of the Night" {
		t.Fatalf("unexpected entry %+v", res.Entry)
	}
	if res.Score < cfg.Arbiter.MatchThreshold {
		t.Fatalf("score %d below threshold", res.Score)
	}
	if res.RequestID == "" {
		t.Fatal("expected request id")
	}

	d := <-l.started
	if d.Title != "Castlevania: Symphony of the Night" || d.System != "PSX" || d.RequestID != res.RequestID {
		t.Fatalf("unexpected directive %+v", d)
	}
}

func TestNotFoundNotifiesAndClears(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), newFakeLauncher(false))
	defer h.stop(t)

	if res := submit(t, h.arb, "PSX:serial:slus-00067:nfc"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected serial lookup to be case-sensitive, got %s", res.Outcome)
	}
	if res := submit(t, h.arb, "SNES:title:Chrono Trigger:nfc"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected not found, got %s", res.Outcome)
	}
	waitFor(t, "not found notification", func() bool { return h.notes.has(notifications.EventNotFound) })
	if got := h.arb.Status(); got.Phase != arbiter.PhaseIdle || got.Stats.NotFound != 2 {
		t.Fatalf("unexpected status %+v", got)
	}
}

func TestCatalogErrorDegradesToNotFound(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t, &memCatalog{err: errors.New("disk gone")}, defaultConfig(), newFakeLauncher(false))
	defer h.stop(t)

	if res := submit(t, h.arb, "PSX:title:Tekken 3:nfc"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected not found, got %s", res.Outcome)
	}
	if res := submit(t, h.arb, "PSX:title:Tekken 3:nfc"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected arbiter to keep serving, got %s", res.Outcome)
	}
}

func TestAmbiguousThenChoose(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newFakeLauncher(false)
	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l)
	defer h.stop(t)

	res := submit(t, h.arb, "PSX:title:Street Fighter Alpha:socket")
	if res.Outcome != arbiter.Ambiguous || len(res.Choices) != 2 {
		t.Fatalf("expected two-way ambiguity, got %s %+v", res.Outcome, res.Choices)
	}
	prompt := <-h.prompts
	if prompt.RequestID != res.RequestID || len(prompt.Choices) != 2 {
		t.Fatalf("unexpected prompt %+v", prompt)
	}
	if got := h.arb.Status(); got.Phase != arbiter.PhaseSelecting || len(got.Choices) != 2 {
		t.Fatalf("unexpected status %+v", got)
	}
	if busy := submit(t, h.arb, "PSX:serial:SLUS-00067:nfc"); busy.Outcome != arbiter.Busy {
		t.Fatalf("expected busy while selecting, got %s", busy.Outcome)
	}

	ctx := context.Background()
	if _, err := h.arb.Choose(ctx, 3); !errors.Is(err, arbiter.ErrInvalidChoice) {
		t.Fatalf("expected ErrInvalidChoice, got %v", err)
	}
	chosen, err := h.arb.Choose(ctx, 2)
	if err != nil {
		t.Fatalf("Choose failed: %v", err)
	}
	if chosen.Outcome != arbiter.Accepted || chosen.Entry.Title != "Street Fighter Alpha 3" {
		t.Fatalf("unexpected choice result %+v", chosen)
	}
	if d := <-l.started; d.Title != "Street Fighter Alpha 3" {
		t.Fatalf("unexpected directive %+v", d)
	}
	waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
	if _, err := h.arb.Choose(ctx, 1); !errors.Is(err, arbiter.ErrNoSelection) {
		t.Fatalf("expected ErrNoSelection, got %v", err)
	}
}

func TestSelectionTimeoutReleasesSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := defaultConfig()
	cfg.SelectionTimeout = 50 * time.Millisecond
	h := start(t, &memCatalog{entries: psxCatalog}, cfg, newFakeLauncher(false))
	defer h.stop(t)

	if res := submit(t, h.arb, "PSX:title:Street Fighter Alpha:socket"); res.Outcome != arbiter.Ambiguous {
		t.Fatalf("expected ambiguous, got %s", res.Outcome)
	}
	waitFor(t, "selection timeout", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
	if res := submit(t, h.arb, "PSX:serial:SCUS-94300:nfc"); res.Outcome != arbiter.Accepted {
		t.Fatalf("expected accepted after timeout, got %s", res.Outcome)
	}
}

func TestLaunchTimeoutClearsStuckSession(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := defaultConfig()
	cfg.LaunchTimeout = 50 * time.Millisecond
	l := newFakeLauncher(true)
	h := start(t, &memCatalog{entries: psxCatalog}, cfg, l)
	defer h.stop(t)

	if res := submit(t, h.arb, "PSX:serial:SLUS-00067:nfc"); res.Outcome != arbiter.Accepted {
		t.Fatalf("expected accepted, got %s", res.Outcome)
	}
	waitFor(t, "stuck session cleared", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
	waitFor(t, "timeout notification", func() bool { return h.notes.has(notifications.EventLaunchTimeout) })

	status := h.arb.Status()
	if status.Stats.LaunchTimeouts != 1 {
		t.Fatalf("expected one launch timeout, got %+v", status.Stats)
	}
	if status.LastLaunch != nil {
		t.Fatalf("timed out launch must not be recorded, got %+v", status.LastLaunch)
	}
}

func TestQueueFullDropsNewRequests(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	cfg := defaultConfig()
	cfg.QueueSize = 1
	a := arbiter.New(cfg, &memCatalog{}, newFakeLauncher(false), nil, nil, logging.NewNop(), nil)

	req := mustRequest(t, "PSX:serial:SLUS-00067:nfc")
	if !a.Offer(req) {
		t.Fatal("expected first offer to be queued")
	}
	if a.Offer(req) {
		t.Fatal("expected second offer to be dropped")
	}
	if _, err := a.Submit(context.Background(), req); !errors.Is(err, arbiter.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	status := a.Status()
	if status.Stats.Dropped != 2 || status.QueueDepth != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestSubmitRejectsMalformedAndClosed(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), newFakeLauncher(false))
	if _, err := h.arb.Submit(context.Background(), request.GameRequest{System: "PSX"}); !errors.Is(err, request.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	h.stop(t)

	if _, err := h.arb.Submit(context.Background(), mustRequest(t, "PSX:serial:SLUS-00067:nfc")); !errors.Is(err, arbiter.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if h.arb.Offer(mustRequest(t, "PSX:serial:SLUS-00067:nfc")) {
		t.Fatal("expected offer to fail after stop")
	}
}

func TestAliasAndRandomLookups(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newFakeLauncher(false)
	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l,
		arbiter.WithRandom(func(n int) int { return n - 1 }))
	defer h.stop(t)

	res := submit(t, h.arb, "PSX:uuid:04a23bc1:nfc")
	if res.Outcome != arbiter.Accepted || res.Entry.Serial != "SLUS-00067" {
		t.Fatalf("unexpected uuid result %s %+v", res.Outcome, res.Entry)
	}
	<-l.started
	waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })

	res = submit(t, h.arb, "PSX:custom:random:gpio4")
	if res.Outcome != arbiter.Accepted || res.Entry.Title != "Tekken 3" {
		t.Fatalf("unexpected random result %s %+v", res.Outcome, res.Entry)
	}
	<-l.started
	waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })

	if res := submit(t, h.arb, "SNES:custom:random:gpio4"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected random on empty system to be not found, got %s", res.Outcome)
	}
}

func TestSerialPrefersRegion(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entries := []catalog.Entry{
		{Title: "Tekken 3", System: "PSX", Serial: "SLPS-01300", Region: "Japan"},
		{Title: "Tekken 3", System: "PSX", Serial: "SLPS-01300", Region: "USA"},
	}
	h := start(t, &memCatalog{entries: entries}, defaultConfig(), newFakeLauncher(false))
	defer h.stop(t)

	res := submit(t, h.arb, "PSX:serial:SLPS-01300:disc")
	if res.Outcome != arbiter.Accepted || res.Entry.Region != "USA" {
		t.Fatalf("expected USA entry, got %s %+v", res.Outcome, res.Entry)
	}
}

func TestExitTargetsLaunchingSource(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newFakeLauncher(false)
	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l)
	defer h.stop(t)

	ctx := context.Background()
	if err := h.arb.Exit(ctx, "nfc"); !errors.Is(err, arbiter.ErrNothingRunning) {
		t.Fatalf("expected ErrNothingRunning, got %v", err)
	}

	submit(t, h.arb, "PSX:serial:SLUS-00067:nfc")
	<-l.started
	waitFor(t, "launch recorded", func() bool { return h.arb.Status().LastLaunch != nil })

	if err := h.arb.Exit(ctx, "gpio17"); !errors.Is(err, arbiter.ErrNothingRunning) {
		t.Fatalf("expected other source to be ignored, got %v", err)
	}
	if err := h.arb.Exit(ctx, "nfc"); err != nil {
		t.Fatalf("Exit failed: %v", err)
	}
	waitFor(t, "exit", func() bool { return l.Exits() == 1 })
	waitFor(t, "exit notification", func() bool { return h.notes.has(notifications.EventExited) })
	if h.arb.Status().LastLaunch != nil {
		t.Fatal("expected last launch to be cleared")
	}

	res := submit(t, h.arb, "PSX:custom:last_played:nfc")
	if res.Outcome != arbiter.Accepted || res.Entry.Serial != "SLUS-00067" {
		t.Fatalf("expected last played game to relaunch, got %s %+v", res.Outcome, res.Entry)
	}
	waitFor(t, "idle", func() bool { return h.arb.Status().Phase == arbiter.PhaseIdle })
	if res := submit(t, h.arb, "SNES:custom:last_played:nfc"); res.Outcome != arbiter.NotFound {
		t.Fatalf("expected last played on another system to miss, got %s", res.Outcome)
	}
}

func TestFavoritesPickAmongAliasedEntries(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	entries := []catalog.Entry{
		{Title: "Super Metroid", System: "SNES", Aliases: []catalog.Alias{{IDType: "custom", Identifier: "favorites"}}},
		{Title: "Chrono Trigger", System: "SNES", Aliases: []catalog.Alias{{IDType: "custom", Identifier: "favorites"}}},
		{Title: "F-Zero", System: "SNES"},
	}
	h := start(t, &memCatalog{entries: entries}, defaultConfig(), newFakeLauncher(false),
		arbiter.WithRandom(func(int) int { return 1 }))
	defer h.stop(t)

	res := submit(t, h.arb, "SNES:custom:favorites:nfc")
	if res.Outcome != arbiter.Accepted || res.Entry.Title != "Chrono Trigger" {
		t.Fatalf("unexpected favorites result %s %+v", res.Outcome, res.Entry)
	}
}

func TestHandleCommands(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := newFakeLauncher(false)
	h := start(t, &memCatalog{entries: psxCatalog}, defaultConfig(), l)
	defer h.stop(t)
	ctx := context.Background()

	resp := h.arb.Handle(ctx, request.Command{Command: request.CmdFindGame, System: "PSX", IDType: "serial", Identifier: "SCUS-94300"}, "socket")
	res, ok := resp.Result.(arbiter.Result)
	if resp.Error != "" || !ok || res.Outcome != arbiter.Accepted || res.Request.Source != "socket" {
		t.Fatalf("unexpected find_game response %+v", resp)
	}
	<-l.started
	waitFor(t, "launch recorded", func() bool { return h.arb.Status().LastLaunch != nil })

	tests := []struct {
		name string
		cmd  request.Command
		want string
	}{
		{name: "bad id type", cmd: request.Command{Command: request.CmdFindGame, System: "PSX", IDType: "isbn", Identifier: "x"}, want: `malformed request: unknown id_type "isbn"`},
		{name: "select without index", cmd: request.Command{Command: request.CmdSelectGame}, want: "select_game requires index"},
		{name: "select without prompt", cmd: request.Command{Command: request.CmdSelectGame, Index: new(int)}, want: arbiter.ErrNoSelection.Error()},
		{name: "unknown", cmd: request.Command{Command: "reboot"}, want: "Unknown command: reboot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := h.arb.Handle(ctx, tt.cmd, "socket"); got.Error != tt.want {
				t.Fatalf("expected error %q, got %+v", tt.want, got)
			}
		})
	}

	if resp := h.arb.Handle(ctx, request.Command{Command: request.CmdStatus}, "socket"); resp.Result.(arbiter.Status).Stats.Accepted != 1 {
		t.Fatalf("unexpected status response %+v", resp)
	}
	resp = h.arb.Handle(ctx, request.Command{Command: request.CmdExitGame}, "socket")
	if exit, ok := resp.Result.(arbiter.ExitResult); !ok || !exit.Exited {
		t.Fatalf("unexpected exit response %+v", resp)
	}
	resp = h.arb.Handle(ctx, request.Command{Command: request.CmdExitGame}, "socket")
	if exit, ok := resp.Result.(arbiter.ExitResult); !ok || exit.Exited {
		t.Fatalf("expected second exit to report nothing running, got %+v", resp)
	}
	waitFor(t, "exit", func() bool { return l.Exits() == 1 })
}
