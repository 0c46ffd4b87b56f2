package harvest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakePage scripts the browser side of a harvest. It recognizes the four
// script shapes the harvester evaluates and replays canned responses, keyed
// by the cycle counter that advances on each scroll command.
type fakePage struct {
	locate      locateResult
	locateErr   error
	snapshots   []string
	snapshotErr error
	states      []surfaceState
	onScroll    func(cycle int)

	cycle      int
	closeCalls int
}

func (p *fakePage) Evaluate(_ context.Context, expr string, out any) error {
	switch {
	case strings.Contains(expr, "rootFound"):
		if p.locateErr != nil {
			return p.locateErr
		}
		*out.(*locateResult) = p.locate
	case strings.Contains(expr, "progressbar"):
		*out.(*surfaceState) = pick(p.states, p.cycle)
	case strings.Contains(expr, "outerHTML"):
		if p.snapshotErr != nil {
			return p.snapshotErr
		}
		*out.(*string) = pick(p.snapshots, p.cycle)
	case strings.Contains(expr, "scrollTop ="):
		p.cycle++
		if p.onScroll != nil {
			p.onScroll(p.cycle)
		}
	default:
		return fmt.Errorf("unscripted evaluate: %s", expr)
	}
	return nil
}

func (p *fakePage) CloseDialog(_ context.Context) error {
	p.closeCalls++
	return nil
}

// pick returns the scripted value for a 1-based cycle, holding the last
// value once the script runs out.
func pick[T any](s []T, cycle int) T {
	var zero T
	if len(s) == 0 {
		return zero
	}
	i := cycle - 1
	if i < 0 {
		i = 0
	}
	if i >= len(s) {
		i = len(s) - 1
	}
	return s[i]
}

func locatedAt(scrollTop int) locateResult {
	return locateResult{RootFound: true, Found: true, ScrollTop: scrollTop}
}

// advancingStates produces n states whose offset grows each cycle without
// ever reaching the end of the content.
func advancingStates(n int) []surfaceState {
	states := make([]surfaceState, n)
	for i := range states {
		states[i] = surfaceState{
			Found:        true,
			ScrollTop:    (i + 1) * 400,
			ScrollHeight: 1_000_000,
			ClientHeight: 600,
		}
	}
	return states
}

func genEntries(from, to int) []ListEntry {
	var entries []ListEntry
	for i := from; i <= to; i++ {
		name := fmt.Sprintf("user%03d", i)
		entries = append(entries, ListEntry{
			DisplayName: name,
			ProfileURL:  "https://example.com/" + name,
		})
	}
	return entries
}

// batchExtractor maps snapshot tokens to entry batches, standing in for the
// goquery extractor so tests control exactly what each cycle yields.
func batchExtractor(batches map[string][]ListEntry) ExtractFunc {
	return func(html string) []ListEntry { return batches[html] }
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.SettleMin = time.Microsecond
	cfg.SettleMax = 2 * time.Microsecond
	return cfg
}

func TestRun_ReturnsCollectedEntries(t *testing.T) {
	// The collected set must survive into the returned result on the
	// normal path, not just into the summary log line.
	batches := map[string][]ListEntry{"only": genEntries(1, 5)}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"only"},
		states: []surfaceState{
			{Found: true, ScrollTop: 4400, ScrollHeight: 5000, ClientHeight: 600},
		},
	}

	res := New(page, batchExtractor(batches), testConfig()).Run(context.Background(), "body")

	if res.Status != StatusReachedEnd {
		t.Errorf("status = %q, want %q", res.Status, StatusReachedEnd)
	}
	if len(res.Entries) != 5 {
		t.Fatalf("Run returned %d entries, want 5", len(res.Entries))
	}
	for i, want := range genEntries(1, 5) {
		if res.Entries[i] != want {
			t.Errorf("entry %d = %+v, want %+v", i, res.Entries[i], want)
		}
	}
}

func TestRun_ReachedEnd(t *testing.T) {
	// 30 unique entries surfaced 10 at a time, with repeat cycles before
	// each new chunk loads, then the end-of-content signal.
	batches := map[string][]ListEntry{
		"chunk1": genEntries(1, 10),
		"chunk2": genEntries(11, 20),
		"chunk3": genEntries(21, 30),
	}
	states := advancingStates(5)
	states[4] = surfaceState{
		Found:        true,
		ScrollTop:    9400,
		ScrollHeight: 10000,
		ClientHeight: 600,
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"chunk1", "chunk1", "chunk2", "chunk2", "chunk3"},
		states:    states,
	}

	res := New(page, batchExtractor(batches), testConfig()).Run(context.Background(), "div[role=\"dialog\"]")

	if res.Status != StatusReachedEnd {
		t.Errorf("status = %q, want %q", res.Status, StatusReachedEnd)
	}
	if res.Cycles != 5 {
		t.Errorf("cycles = %d, want 5", res.Cycles)
	}
	if len(res.Entries) != 30 {
		t.Fatalf("expected 30 entries, got %d", len(res.Entries))
	}
	for i, want := range genEntries(1, 30) {
		if res.Entries[i] != want {
			t.Errorf("entry %d = %+v, want %+v (first-seen order)", i, res.Entries[i], want)
		}
	}
	if page.closeCalls != 1 {
		t.Errorf("dialog closed %d times, want 1", page.closeCalls)
	}
}

func TestRun_StalledNoProgress_ExactThreshold(t *testing.T) {
	cfg := testConfig()
	cfg.NoProgressCycles = 3

	// One productive cycle, then identical output forever.
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"chunk", "chunk"},
		states:    advancingStates(10),
	}
	batches := map[string][]ListEntry{"chunk": genEntries(1, 5)}

	res := New(page, batchExtractor(batches), cfg).Run(context.Background(), "body")

	if res.Status != StatusStalledNoProgress {
		t.Errorf("status = %q, want %q", res.Status, StatusStalledNoProgress)
	}
	if want := 1 + cfg.NoProgressCycles; res.Cycles != want {
		t.Errorf("cycles = %d, want exactly %d", res.Cycles, want)
	}
	if len(res.Entries) != 5 {
		t.Errorf("expected 5 entries, got %d", len(res.Entries))
	}
}

func TestRun_StalledNoScroll_FrozenOffset(t *testing.T) {
	cfg := testConfig()
	cfg.NoScrollCycles = 5

	// Offset never moves from its locate-time value; content is static.
	frozen := surfaceState{
		Found:        true,
		ScrollTop:    0,
		ScrollHeight: 5000,
		ClientHeight: 600,
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"static"},
		states:    []surfaceState{frozen},
	}
	batches := map[string][]ListEntry{"static": append(genEntries(1, 6), genEntries(1, 3)...)}

	res := New(page, batchExtractor(batches), cfg).Run(context.Background(), "body")

	if res.Status != StatusStalledNoScroll {
		t.Errorf("status = %q, want %q", res.Status, StatusStalledNoScroll)
	}
	if res.Cycles != cfg.NoScrollCycles {
		t.Errorf("cycles = %d, want exactly %d", res.Cycles, cfg.NoScrollCycles)
	}
	if len(res.Entries) != 6 {
		t.Errorf("expected 6 deduplicated entries, got %d", len(res.Entries))
	}
}

func TestRun_SizeCap_ExactCount(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 100

	// 20 fresh entries per cycle from a 500-entry population.
	snapshots := make([]string, 25)
	batches := make(map[string][]ListEntry, 25)
	for i := range snapshots {
		token := fmt.Sprintf("chunk%d", i+1)
		snapshots[i] = token
		batches[token] = genEntries(i*20+1, i*20+20)
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: snapshots,
		states:    advancingStates(30),
	}

	res := New(page, batchExtractor(batches), cfg).Run(context.Background(), "body")

	if res.Status != StatusSizeCap {
		t.Errorf("status = %q, want %q", res.Status, StatusSizeCap)
	}
	if len(res.Entries) != 100 {
		t.Fatalf("expected exactly 100 entries, got %d", len(res.Entries))
	}
	if res.Cycles != 5 {
		t.Errorf("cycles = %d, want 5", res.Cycles)
	}
	// The cap keeps discovery order: the kept entries are the first 100 seen.
	for i, want := range genEntries(1, 100) {
		if res.Entries[i] != want {
			t.Fatalf("entry %d = %+v, want %+v", i, res.Entries[i], want)
		}
	}
}

func TestRun_CycleCeiling(t *testing.T) {
	cfg := testConfig()
	cfg.MaxCycles = 7

	// Every cycle makes progress and scrolls; only the ceiling can stop it.
	snapshots := make([]string, 10)
	batches := make(map[string][]ListEntry, 10)
	for i := range snapshots {
		token := fmt.Sprintf("chunk%d", i+1)
		snapshots[i] = token
		batches[token] = genEntries(i*5+1, i*5+5)
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: snapshots,
		states:    advancingStates(10),
	}

	res := New(page, batchExtractor(batches), cfg).Run(context.Background(), "body")

	if res.Status != StatusCycleCeiling {
		t.Errorf("status = %q, want %q", res.Status, StatusCycleCeiling)
	}
	if res.Cycles != cfg.MaxCycles {
		t.Errorf("cycles = %d, want %d", res.Cycles, cfg.MaxCycles)
	}
	if len(res.Entries) != 35 {
		t.Errorf("expected 35 entries, got %d", len(res.Entries))
	}
}

func TestRun_NoSurface(t *testing.T) {
	page := &fakePage{
		locate: locateResult{RootFound: true, Found: false},
	}

	res := New(page, batchExtractor(nil), testConfig()).Run(context.Background(), "div[role=\"dialog\"]")

	if res.Status != StatusNoSurface {
		t.Errorf("status = %q, want %q", res.Status, StatusNoSurface)
	}
	if len(res.Entries) != 0 {
		t.Errorf("expected no entries, got %d", len(res.Entries))
	}
	if res.Cycles != 0 {
		t.Errorf("cycles = %d, want 0", res.Cycles)
	}
	if page.closeCalls != 1 {
		t.Errorf("dialog closed %d times, want 1", page.closeCalls)
	}
}

func TestRun_LocateError(t *testing.T) {
	page := &fakePage{locateErr: errors.New("target crashed")}

	res := New(page, batchExtractor(nil), testConfig()).Run(context.Background(), "body")

	if res.Status != StatusNoSurface {
		t.Errorf("status = %q, want %q", res.Status, StatusNoSurface)
	}
	if page.closeCalls != 1 {
		t.Errorf("dialog closed %d times, want 1", page.closeCalls)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	page := &fakePage{locate: locatedAt(0)}
	res := New(page, batchExtractor(nil), testConfig()).Run(ctx, "body")

	if res.Status != StatusCancelled {
		t.Errorf("status = %q, want %q", res.Status, StatusCancelled)
	}
	if page.closeCalls != 1 {
		t.Error("dialog must be closed even on a cancelled run")
	}
}

func TestRun_CancelledMidRun_KeepsPartial(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	batches := map[string][]ListEntry{
		"chunk1": genEntries(1, 10),
		"chunk2": genEntries(11, 20),
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"chunk1", "chunk2"},
		states:    advancingStates(10),
	}
	page.onScroll = func(cycle int) {
		if cycle == 3 {
			cancel()
		}
	}

	res := New(page, batchExtractor(batches), testConfig()).Run(ctx, "body")

	if res.Status != StatusCancelled {
		t.Errorf("status = %q, want %q", res.Status, StatusCancelled)
	}
	if len(res.Entries) != 20 {
		t.Errorf("expected the 20 entries collected before cancellation, got %d", len(res.Entries))
	}
	if page.closeCalls != 1 {
		t.Error("dialog must be closed on cancellation")
	}
}

func TestRun_SnapshotErrorsCountAsStall(t *testing.T) {
	cfg := testConfig()
	cfg.NoProgressCycles = 4

	page := &fakePage{
		locate:      locatedAt(0),
		snapshotErr: errors.New("evaluate timed out"),
		states:      advancingStates(10),
	}

	res := New(page, batchExtractor(nil), cfg).Run(context.Background(), "body")

	if res.Status != StatusStalledNoProgress {
		t.Errorf("status = %q, want %q", res.Status, StatusStalledNoProgress)
	}
	if res.Cycles != cfg.NoProgressCycles {
		t.Errorf("cycles = %d, want %d", res.Cycles, cfg.NoProgressCycles)
	}
}

func TestRun_CollectedEqualsUnionOfCycles(t *testing.T) {
	// Heavily overlapping batches: the result must equal the union of all
	// cycle outputs keyed by identity, regardless of how often items repeat.
	batches := map[string][]ListEntry{
		"a": genEntries(1, 8),
		"b": genEntries(5, 14),
		"c": genEntries(10, 22),
		"d": genEntries(1, 22),
	}
	states := advancingStates(4)
	states[3] = surfaceState{Found: true, ScrollTop: 1600, ScrollHeight: 2200, ClientHeight: 600}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"a", "b", "c", "d"},
		states:    states,
	}

	res := New(page, batchExtractor(batches), testConfig()).Run(context.Background(), "body")

	union := make(map[string]bool)
	for _, batch := range batches {
		for _, e := range batch {
			union[e.Key()] = true
		}
	}
	if len(res.Entries) != len(union) {
		t.Fatalf("expected %d entries (union of all cycles), got %d", len(union), len(res.Entries))
	}
	for _, e := range res.Entries {
		if !union[e.Key()] {
			t.Errorf("entry %q not in any cycle output", e.Key())
		}
	}
}

func TestRun_EndSignalSuppressedWhileLoading(t *testing.T) {
	cfg := testConfig()
	cfg.NoProgressCycles = 2

	// Geometry says bottom, but a spinner is still visible: the end signal
	// must not fire, so the no-progress stall terminates instead.
	bottomLoading := surfaceState{
		Found:        true,
		ScrollTop:    4400,
		ScrollHeight: 5000,
		ClientHeight: 600,
		Loading:      true,
	}
	page := &fakePage{
		locate:    locatedAt(0),
		snapshots: []string{"static"},
		states: []surfaceState{
			{Found: true, ScrollTop: 4000, ScrollHeight: 5000, ClientHeight: 600},
			bottomLoading,
			{Found: true, ScrollTop: 4401, ScrollHeight: 5000, ClientHeight: 600, Loading: true},
			{Found: true, ScrollTop: 4402, ScrollHeight: 5000, ClientHeight: 600, Loading: true},
		},
	}
	batches := map[string][]ListEntry{"static": genEntries(1, 3)}

	res := New(page, batchExtractor(batches), cfg).Run(context.Background(), "body")

	if res.Status != StatusStalledNoProgress {
		t.Errorf("status = %q, want %q", res.Status, StatusStalledNoProgress)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults valid", func(c *Config) {}, false},
		{"zero scroll step", func(c *Config) { c.ScrollStep = 0 }, true},
		{"settle max below min", func(c *Config) { c.SettleMax = c.SettleMin - 1 }, true},
		{"zero max cycles", func(c *Config) { c.MaxCycles = 0 }, true},
		{"zero max entries", func(c *Config) { c.MaxEntries = 0 }, true},
		{"negative overflow margin", func(c *Config) { c.OverflowMargin = -1 }, true},
		{"equal settle bounds", func(c *Config) { c.SettleMax = c.SettleMin }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
