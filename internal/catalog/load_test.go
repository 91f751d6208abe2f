package catalog_test

import (
	"context"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gamearbiter/internal/catalog"
	"gamearbiter/internal/testsupport"
)

func TestLoadFileFormats(t *testing.T) {
	want := []catalog.Entry{
		{Title: "Tekken 3", System: "PSX", Serial: "SCUS-94300", Region: "USA"},
		{Title: "Chrono Trigger", System: "SNES", Region: "USA", Aliases: []catalog.Alias{
			{IDType: "uuid", Identifier: "04a23bc1"},
			{IDType: "custom", Identifier: "chrono"},
		}},
	}

	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{
			name: "json array",
			file: "games.json",
			contents: `[
  {"title": "Tekken 3", "system": "PSX", "serial": "SCUS-94300", "region": "USA"},
  {"title": "Chrono Trigger", "system": "SNES", "region": "USA",
   "aliases": [{"id_type": "uuid", "identifier": "04a23bc1"}, {"id_type": "custom", "identifier": "chrono"}]}
]`,
		},
		{
			name: "json document",
			file: "games.json",
			contents: `{"entries": [
  {"title": "Tekken 3", "system": "PSX", "serial": "SCUS-94300", "region": "USA"},
  {"title": "Chrono Trigger", "system": "SNES", "region": "USA",
   "aliases": [{"id_type": "uuid", "identifier": "04a23bc1"}, {"id_type": "custom", "identifier": "chrono"}]}
]}`,
		},
		{
			name: "yaml document",
			file: "games.yaml",
			contents: `entries:
  - title: Tekken 3
    system: PSX
    serial: SCUS-94300
    region: USA
  - title: Chrono Trigger
    system: SNES
    region: USA
    aliases:
      - id_type: uuid
        identifier: 04a23bc1
      - id_type: custom
        identifier: chrono
`,
		},
		{
			name: "yaml list",
			file: "games.yml",
			contents: `- {title: Tekken 3, system: PSX, serial: SCUS-94300, region: USA}
- title: Chrono Trigger
  system: SNES
  region: USA
  aliases: [{id_type: uuid, identifier: 04a23bc1}, {id_type: custom, identifier: chrono}]
`,
		},
		{
			name: "csv",
			file: "games.csv",
			contents: `title,system,serial,region,aliases
Tekken 3,PSX,SCUS-94300,USA,
Chrono Trigger,SNES,,USA,uuid=04a23bc1;custom=chrono
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			testsupport.WriteFile(t, path, tt.contents)

			got, err := catalog.LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("entries mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadFileErrors(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		contents string
	}{
		{name: "unknown extension", file: "games.txt", contents: "Tekken 3"},
		{name: "missing system", file: "games.json", contents: `[{"title": "Tekken 3"}]`},
		{name: "csv without title column", file: "games.csv", contents: "system,serial\nPSX,SCUS-94300\n"},
		{name: "csv bad alias", file: "games.csv", contents: "title,system,aliases\nTekken 3,PSX,uuid\n"},
		{name: "broken json", file: "games.json", contents: `[{"title":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			testsupport.WriteFile(t, path, tt.contents)
			if _, err := catalog.LoadFile(path); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestScanDerivesEntriesFromGamesTree(t *testing.T) {
	root := t.TempDir()
	testsupport.WriteGameTree(t, root,
		"SNES/Chrono Trigger (USA).sfc",
		"SNES/Super Metroid (Japan, USA) [!].smc",
		"SNES/readme.txt",
		"PSX/Tekken 3 (Europe)/Tekken 3 (Europe).cue",
		"PSX/.hidden/Ghost (USA).cue",
		"Unknown/Game (USA).zip",
	)

	entries, err := catalog.Scan(context.Background(), root)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	for i := range entries {
		entries[i].Path = filepath.ToSlash(mustRel(t, root, entries[i].Path))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Title < entries[j].Title })

	want := []catalog.Entry{
		{Title: "Chrono Trigger", System: "SNES", Region: "USA", Path: "SNES/Chrono Trigger (USA).sfc"},
		{Title: "Super Metroid", System: "SNES", Region: "Japan", Path: "SNES/Super Metroid (Japan, USA) [!].smc"},
		{Title: "Tekken 3", System: "PSX", Region: "Europe", Path: "PSX/Tekken 3 (Europe)/Tekken 3 (Europe).cue"},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestScanThenImport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenCatalog(t, cfg)
	testsupport.WriteGameTree(t, cfg.Paths.GamesDir, "NES/Mega Man 2 (USA).nes")

	entries, err := catalog.Scan(context.Background(), cfg.Paths.GamesDir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	n, err := store.Import(context.Background(), entries)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 imported entry, got %d", n)
	}
	got, err := store.BySystem(context.Background(), "NES")
	if err != nil {
		t.Fatalf("BySystem failed: %v", err)
	}
	if len(got) != 1 || got[0].Title != "Mega Man 2" || got[0].Region != "USA" {
		t.Fatalf("unexpected entries: %#v", got)
	}
}

func mustRel(t *testing.T, root, path string) string {
	t.Helper()
	rel, err := filepath.Rel(root, path)
	if err != nil {
		t.Fatalf("rel: %v", err)
	}
	return rel
}
