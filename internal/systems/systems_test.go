package systems

import "testing"

func TestLookupAliases(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PSX", "PSX"},
		{"psx", "PSX"},
		{"ps1", "PSX"},
		{"MegaDrive", "Genesis"},
		{" n64 ", "Nintendo64"},
		{"tgfx16", "TurboGrafx16"},
	}
	for _, tt := range tests {
		sys, ok := Lookup(tt.in)
		if !ok {
			t.Fatalf("Lookup(%q) failed", tt.in)
		}
		if sys.ID != tt.want {
			t.Errorf("Lookup(%q) = %s, want %s", tt.in, sys.ID, tt.want)
		}
	}
	if _, ok := Lookup("Dreamcast"); ok {
		t.Fatal("expected Dreamcast to be unknown")
	}
	if Canonical("Dreamcast") != "Dreamcast" {
		t.Fatal("Canonical should pass unknown IDs through")
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/media/fat/games/PSX/Castlevania (USA)/Castlevania.cue", "PSX"},
		{"/media/fat/games/SNES/Chrono Trigger (USA).sfc", "SNES"},
		{"/media/fat/games/SMS/Sonic (Europe).gg", "GameGear"},
		{"/media/fat/games/SMS/Alex Kidd (USA).sms", "MasterSystem"},
		{"/media/fat/games/GAMEBOY/Tetris.gbc", "GameboyColor"},
	}
	for _, tt := range tests {
		sys, ok := FromPath(tt.path)
		if !ok {
			t.Fatalf("FromPath(%q) failed", tt.path)
		}
		if sys.ID != tt.want {
			t.Errorf("FromPath(%q) = %s, want %s", tt.path, sys.ID, tt.want)
		}
	}
	if _, ok := FromPath("/home/user/notes.txt"); ok {
		t.Fatal("expected unknown path")
	}
}

func TestAllSortedAndComplete(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		if all[i-1].ID >= all[i].ID {
			t.Fatalf("All not sorted at %d: %s >= %s", i, all[i-1].ID, all[i].ID)
		}
	}
	for _, sys := range all {
		if sys.RBF == "" || len(sys.Folders) == 0 || len(sys.Extensions) == 0 {
			t.Errorf("incomplete system entry: %+v", sys)
		}
	}
}
