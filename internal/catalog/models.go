package catalog

import "strings"

// Entry is one launchable game known to the catalog.
type Entry struct {
	ID      int64   `json:"id,omitempty" yaml:"id,omitempty"`
	Title   string  `json:"title" yaml:"title"`
	System  string  `json:"system" yaml:"system"`
	Serial  string  `json:"serial,omitempty" yaml:"serial,omitempty"`
	Region  string  `json:"region,omitempty" yaml:"region,omitempty"`
	Path    string  `json:"path,omitempty" yaml:"path,omitempty"`
	Aliases []Alias `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Alias binds a non-serial identifier (NFC UID, ROM hash, barcode, custom
// keyword) to an entry.
type Alias struct {
	IDType     string `json:"id_type" yaml:"id_type"`
	Identifier string `json:"identifier" yaml:"identifier"`
}

// SystemCount summarizes the catalog per system.
type SystemCount struct {
	System  string
	Entries int
}

// Label renders "Title (Region)" for menus and notifications.
func (e Entry) Label() string {
	if strings.TrimSpace(e.Region) == "" {
		return e.Title
	}
	return e.Title + " (" + e.Region + ")"
}
