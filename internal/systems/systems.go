package systems

import (
	"path/filepath"
	"sort"
	"strings"
)

// Slot describes how an MGL file hands a ROM to a core.
type Slot struct {
	Delay int
	Type  string // "f" file, "s" disc image
	Index int
}

// System describes one launchable system/core.
type System struct {
	ID         string
	Name       string
	Aliases    []string
	RBF        string
	Folders    []string
	Extensions []string
	Slot       Slot
}

// table lists the MiSTer cores the daemon knows how to launch.
var table = []System{
	{ID: "Atari2600", Name: "Atari 2600", RBF: "_Console/Atari7800", Folders: []string{"ATARI7800", "Atari2600"}, Extensions: []string{".a26"}, Slot: Slot{1, "f", 1}},
	{ID: "Atari7800", Name: "Atari 7800", RBF: "_Console/Atari7800", Folders: []string{"ATARI7800"}, Extensions: []string{".a78"}, Slot: Slot{1, "f", 1}},
	{ID: "AtariLynx", Name: "Atari Lynx", Aliases: []string{"Lynx"}, RBF: "_Console/AtariLynx", Folders: []string{"AtariLynx"}, Extensions: []string{".lnx"}, Slot: Slot{1, "f", 1}},
	{ID: "ColecoVision", Name: "ColecoVision", Aliases: []string{"Coleco"}, RBF: "_Console/ColecoVision", Folders: []string{"Coleco"}, Extensions: []string{".col", ".bin", ".rom"}, Slot: Slot{1, "f", 1}},
	{ID: "FDS", Name: "Famicom Disk System", RBF: "_Console/NES", Folders: []string{"NES", "FDS"}, Extensions: []string{".fds"}, Slot: Slot{2, "f", 0}},
	{ID: "Gameboy", Name: "Game Boy", Aliases: []string{"GB"}, RBF: "_Console/Gameboy", Folders: []string{"GAMEBOY"}, Extensions: []string{".gb"}, Slot: Slot{2, "f", 1}},
	{ID: "GameboyColor", Name: "Game Boy Color", Aliases: []string{"GBC"}, RBF: "_Console/Gameboy", Folders: []string{"GAMEBOY", "GBC"}, Extensions: []string{".gbc"}, Slot: Slot{2, "f", 1}},
	{ID: "GameGear", Name: "Game Gear", Aliases: []string{"GG"}, RBF: "_Console/SMS", Folders: []string{"SMS", "GameGear"}, Extensions: []string{".gg"}, Slot: Slot{1, "f", 2}},
	{ID: "GBA", Name: "Game Boy Advance", RBF: "_Console/GBA", Folders: []string{"GBA"}, Extensions: []string{".gba"}, Slot: Slot{2, "f", 0}},
	{ID: "Genesis", Name: "Genesis / Mega Drive", Aliases: []string{"MegaDrive", "MD"}, RBF: "_Console/MegaDrive", Folders: []string{"MegaDrive", "Genesis"}, Extensions: []string{".gen", ".bin", ".md"}, Slot: Slot{1, "f", 1}},
	{ID: "MasterSystem", Name: "Master System", Aliases: []string{"SMS"}, RBF: "_Console/SMS", Folders: []string{"SMS"}, Extensions: []string{".sms"}, Slot: Slot{1, "f", 1}},
	{ID: "MegaCD", Name: "Mega CD / Sega CD", Aliases: []string{"SegaCD"}, RBF: "_Console/MegaCD", Folders: []string{"MegaCD"}, Extensions: []string{".cue", ".chd"}, Slot: Slot{1, "s", 0}},
	{ID: "NeoGeo", Name: "Neo Geo", RBF: "_Console/NeoGeo", Folders: []string{"NEOGEO"}, Extensions: []string{".neo"}, Slot: Slot{1, "f", 1}},
	{ID: "NES", Name: "NES", Aliases: []string{"Famicom"}, RBF: "_Console/NES", Folders: []string{"NES"}, Extensions: []string{".nes"}, Slot: Slot{2, "f", 1}},
	{ID: "Nintendo64", Name: "Nintendo 64", Aliases: []string{"N64"}, RBF: "_Console/N64", Folders: []string{"N64"}, Extensions: []string{".n64", ".z64"}, Slot: Slot{1, "f", 1}},
	{ID: "PSX", Name: "PlayStation", Aliases: []string{"PS1", "Playstation"}, RBF: "_Console/PSX", Folders: []string{"PSX"}, Extensions: []string{".cue", ".chd", ".exe"}, Slot: Slot{1, "s", 1}},
	{ID: "Saturn", Name: "Saturn", RBF: "_Console/Saturn", Folders: []string{"Saturn"}, Extensions: []string{".cue", ".chd"}, Slot: Slot{1, "s", 0}},
	{ID: "Sega32X", Name: "32X", Aliases: []string{"S32X"}, RBF: "_Console/S32X", Folders: []string{"S32X"}, Extensions: []string{".32x"}, Slot: Slot{1, "f", 1}},
	{ID: "SG1000", Name: "SG-1000", RBF: "_Console/SMS", Folders: []string{"SG1000", "Coleco", "SMS"}, Extensions: []string{".sg"}, Slot: Slot{1, "f", 2}},
	{ID: "SNES", Name: "SNES", Aliases: []string{"SuperNintendo", "SFC"}, RBF: "_Console/SNES", Folders: []string{"SNES"}, Extensions: []string{".sfc", ".smc", ".bin", ".bs"}, Slot: Slot{2, "f", 0}},
	{ID: "TurboGrafx16", Name: "TurboGrafx-16 / PC Engine", Aliases: []string{"TGFX16", "PCEngine"}, RBF: "_Console/TurboGrafx16", Folders: []string{"TGFX16"}, Extensions: []string{".pce", ".bin"}, Slot: Slot{1, "f", 0}},
	{ID: "TurboGrafx16CD", Name: "TurboGrafx-CD / PC Engine CD", Aliases: []string{"TGFX16CD", "PCEngineCD"}, RBF: "_Console/TurboGrafx16", Folders: []string{"TGFX16-CD"}, Extensions: []string{".cue", ".chd"}, Slot: Slot{1, "s", 0}},
	{ID: "Vectrex", Name: "Vectrex", RBF: "_Console/Vectrex", Folders: []string{"VECTREX"}, Extensions: []string{".vec", ".bin", ".rom"}, Slot: Slot{1, "f", 1}},
	{ID: "WonderSwan", Name: "WonderSwan", RBF: "_Console/WonderSwan", Folders: []string{"WonderSwan"}, Extensions: []string{".ws"}, Slot: Slot{1, "f", 1}},
	{ID: "WonderSwanColor", Name: "WonderSwan Color", RBF: "_Console/WonderSwan", Folders: []string{"WonderSwan", "WonderSwanColor"}, Extensions: []string{".wsc"}, Slot: Slot{1, "f", 1}},
}

var index = buildIndex()

func buildIndex() map[string]*System {
	idx := make(map[string]*System, len(table)*2)
	for i := range table {
		sys := &table[i]
		idx[strings.ToLower(sys.ID)] = sys
		for _, alias := range sys.Aliases {
			key := strings.ToLower(alias)
			if _, taken := idx[key]; !taken {
				idx[key] = sys
			}
		}
	}
	return idx
}

// Lookup finds a system by ID or alias, case-insensitively.
func Lookup(id string) (System, bool) {
	sys, ok := index[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return System{}, false
	}
	return *sys, true
}

// Canonical returns the table ID for id, or id unchanged when unknown.
func Canonical(id string) string {
	if sys, ok := Lookup(id); ok {
		return sys.ID
	}
	return strings.TrimSpace(id)
}

// All returns every known system sorted by ID.
func All() []System {
	out := make([]System, len(table))
	copy(out, table)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SupportsExtension reports whether ext (with or without the dot) is a
// launchable file type for the system.
func (s System) SupportsExtension(ext string) bool {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	for _, candidate := range s.Extensions {
		if candidate == ext {
			return true
		}
	}
	return false
}

// FromPath guesses the system of a ROM path from its games folder segment and
// extension. Folder matches that also accept the extension win over bare
// folder matches.
func FromPath(path string) (System, bool) {
	ext := strings.ToLower(filepath.Ext(path))
	segments := strings.Split(filepath.ToSlash(filepath.Dir(path)), "/")

	var folderOnly *System
	for i := len(segments) - 1; i >= 0; i-- {
		segment := segments[i]
		if segment == "" {
			continue
		}
		for j := range table {
			sys := &table[j]
			for _, folder := range sys.Folders {
				if !strings.EqualFold(folder, segment) {
					continue
				}
				if sys.SupportsExtension(ext) {
					return *sys, true
				}
				if folderOnly == nil {
					folderOnly = sys
				}
			}
		}
		if folderOnly != nil {
			return *folderOnly, true
		}
	}
	return System{}, false
}
