package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/pelletier/go-toml/v2"

	"gamearbiter/internal/config"
	"gamearbiter/internal/testsupport"
	"gamearbiter/internal/titles"
)

const cliCatalog = `entries:
  - title: Castlevania - Symphony of the Night
    system: PSX
    serial: SLUS-00067
    region: USA
  - title: Tekken 3
    system: PSX
    serial: SCUS-94300
    region: USA
  - title: Sonic the Hedgehog
    system: Genesis
    region: USA
`

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeCLIConfig persists a test config so commands resolve it through -c.
func writeCLIConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(testsupport.BaseDir(cfg), "config.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfg, path
}

func TestScoreCommandJSON(t *testing.T) {
	out, err := runCLI(t, "score", "Final Fantasy VII", "final fantasy 7", "--json")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	var got titles.Breakdown
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if diff := cmp.Diff(titles.Explain("Final Fantasy VII", "final fantasy 7"), got); diff != "" {
		t.Fatalf("breakdown mismatch (-want +got):\n%s", diff)
	}
	if got.Total != 100 {
		t.Fatalf("total = %d, want 100", got.Total)
	}
}

func TestScoreCommandTable(t *testing.T) {
	out, err := runCLI(t, "score", "Tekken 3", "Tekken 2")
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	for _, want := range []string{"Normalized A", "tekken 3", "Total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestNormalizeCommand(t *testing.T) {
	out, err := runCLI(t, "normalize", "The Legend of Zelda", "Pokémon Red")
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	want := titles.Normalize("The Legend of Zelda") + "\n" + titles.Normalize("Pokémon Red") + "\n"
	if out != want {
		t.Fatalf("output = %q, want %q", out, want)
	}
}

func TestNFCEncodeDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tag.bin")
	if _, err := runCLI(t, "nfc", "encode", "--system", "PSX", "--identifier", "SLUS-00067", "--out", path); err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := runCLI(t, "nfc", "decode", path)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	var got tagView
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode output %q: %v", out, err)
	}
	want := tagView{Format: "record", Type: "SINGLE_GAME", System: "PSX", IDType: "serial", Identifier: "SLUS-00067"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tag mismatch (-want +got):\n%s", diff)
	}
}

func TestNFCEncodeRejectsUnknownType(t *testing.T) {
	if _, err := runCLI(t, "nfc", "encode", "--type", "BOGUS", "--system", "PSX"); err == nil {
		t.Fatal("expected error for unknown tag type")
	}
}

func TestCatalogImportListStats(t *testing.T) {
	cfg, configPath := writeCLIConfig(t)
	catalogPath := filepath.Join(testsupport.BaseDir(cfg), "games.yaml")
	testsupport.WriteFile(t, catalogPath, cliCatalog)

	out, err := runCLI(t, "-c", configPath, "catalog", "import", catalogPath)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "Imported 3 entries") {
		t.Fatalf("import output = %q", out)
	}

	out, err = runCLI(t, "-c", configPath, "catalog", "list", "--system", "psx", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []struct {
		Title  string `json:"title"`
		Serial string `json:"serial"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("decode list %q: %v", out, err)
	}
	var gotTitles []string
	for _, e := range entries {
		gotTitles = append(gotTitles, e.Title)
	}
	if diff := cmp.Diff([]string{"Castlevania - Symphony of the Night", "Tekken 3"}, gotTitles); diff != "" {
		t.Fatalf("titles mismatch (-want +got):\n%s", diff)
	}

	out, err = runCLI(t, "-c", configPath, "catalog", "stats")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	for _, want := range []string{"PSX", "Genesis", "Total"} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}
}

func TestCatalogImportRejectsBadFile(t *testing.T) {
	cfg, configPath := writeCLIConfig(t)
	bad := filepath.Join(testsupport.BaseDir(cfg), "games.txt")
	testsupport.WriteFile(t, bad, "nope")
	if _, err := runCLI(t, "-c", configPath, "catalog", "import", bad); err == nil {
		t.Fatal("expected error for unsupported catalog format")
	}
}

func TestCatalogHashBindsAlias(t *testing.T) {
	cfg, configPath := writeCLIConfig(t)
	base := testsupport.BaseDir(cfg)
	catalogPath := filepath.Join(base, "games.yaml")
	testsupport.WriteFile(t, catalogPath, cliCatalog)
	rom := filepath.Join(base, "sonic.md")
	testsupport.WriteFile(t, rom, "SEGA GENESIS")

	if _, err := runCLI(t, "-c", configPath, "catalog", "import", catalogPath); err != nil {
		t.Fatalf("import: %v", err)
	}
	out, err := runCLI(t, "-c", configPath, "catalog", "list", "--system", "Genesis", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var entries []struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil || len(entries) != 1 {
		t.Fatalf("list = %q (%v)", out, err)
	}

	out, err = runCLI(t, "-c", configPath, "catalog", "hash", rom, "--entry", strconv.FormatInt(entries[0].ID, 10))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !strings.Contains(out, "Bound hash to Sonic the Hedgehog (USA)") {
		t.Fatalf("hash output = %q", out)
	}
}

func TestConfigInitAndShow(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")
	if _, err := runCLI(t, "config", "init", "--path", target); err != nil {
		t.Fatalf("init: %v", err)
	}
	if _, err := runCLI(t, "config", "init", "--path", target); err == nil {
		t.Fatal("second init without --overwrite should fail")
	}
	if _, err := runCLI(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("init --overwrite: %v", err)
	}

	_, configPath := writeCLIConfig(t)
	out, err := runCLI(t, "-c", configPath, "config", "show")
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	var shown config.Config
	if err := toml.Unmarshal([]byte(out), &shown); err != nil {
		t.Fatalf("show output is not TOML: %v", err)
	}
	if shown.Launcher.Mode != config.LauncherModeLog {
		t.Fatalf("launcher mode = %q, want log", shown.Launcher.Mode)
	}
}

func TestRequestCommandsReportMissingDaemon(t *testing.T) {
	_, configPath := writeCLIConfig(t)
	_, err := runCLI(t, "-c", configPath, "status")
	if err == nil {
		t.Fatal("expected error without a running daemon")
	}
	if !strings.Contains(err.Error(), "arbiter daemon") {
		t.Fatalf("error = %v, want start hint", err)
	}
}

func TestSendRejectsMalformedLine(t *testing.T) {
	_, configPath := writeCLIConfig(t)
	if _, err := runCLI(t, "-c", configPath, "send", "PSX:serial"); err == nil {
		t.Fatal("expected malformed line error")
	}
}
