package launcher

import (
	"encoding/xml"
	"fmt"
	"path/filepath"
	"strings"

	"gamearbiter/internal/systems"
	"gamearbiter/internal/textutil"
)

// absolutePrefix climbs from the core's games folder back to the filesystem
// root so MiSTer accepts absolute ROM paths.
const absolutePrefix = "../../../../.."

type mglDocument struct {
	XMLName xml.Name `xml:"mistergamedescription"`
	RBF     string   `xml:"rbf"`
	File    *mglFile `xml:"file,omitempty"`
}

type mglFile struct {
	Delay int    `xml:"delay,attr"`
	Type  string `xml:"type,attr"`
	Index int    `xml:"index,attr"`
	Path  string `xml:"path,attr"`
}

// RenderMGL returns the MGL descriptor for d. A directive without a path
// loads the bare core.
func RenderMGL(d Directive) ([]byte, error) {
	sys, ok := systems.Lookup(d.System)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSystem, d.System)
	}

	doc := mglDocument{RBF: sys.RBF}
	if path := strings.TrimSpace(d.Path); path != "" {
		if filepath.IsAbs(path) {
			path = absolutePrefix + filepath.ToSlash(path)
		}
		doc.File = &mglFile{
			Delay: sys.Slot.Delay,
			Type:  sys.Slot.Type,
			Index: sys.Slot.Index,
			Path:  path,
		}
	}

	body, err := xml.MarshalIndent(doc, "", "\t")
	if err != nil {
		return nil, fmt.Errorf("encode mgl: %w", err)
	}
	return append(body, '\n'), nil
}

// MGLName returns the file name used for d inside the MGL directory.
func MGLName(d Directive) string {
	name := textutil.SanitizeFileName(d.Title)
	if name == "" {
		name = textutil.SanitizeToken(d.System)
	}
	return name + ".mgl"
}
