package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"gamearbiter/internal/region"
	"gamearbiter/internal/systems"
)

// Scan walks a MiSTer games root and derives an entry for every file whose
// folder and extension identify a known system. Titles and regions come from
// the No-Intro style filename.
func Scan(ctx context.Context, root string) ([]Entry, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var entries []Entry
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		sys, ok := systems.FromPath(rel)
		if !ok || !sys.SupportsExtension(filepath.Ext(name)) {
			return nil
		}

		stem := strings.TrimSuffix(name, filepath.Ext(name))
		title := region.StripTags(stem)
		if title == "" {
			return nil
		}
		entries = append(entries, Entry{
			Title:  title,
			System: sys.ID,
			Region: region.FromFilename(stem),
			Path:   path,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return entries, nil
}
