package catalog

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Discover walks root and builds a FileRecord for every regular file found.
// Paths are recorded relative to root with forward slashes. The walk honors
// context cancellation between directory entries.
func Discover(ctx context.Context, root string) ([]*FileRecord, error) {
	var records []*FileRecord

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		records = append(records, &FileRecord{
			Path: rel,
			Name: d.Name(),
			Size: info.Size(),
			Kind: KindForName(d.Name()),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(records, func(i, j int) bool { return records[i].Path < records[j].Path })
	return records, nil
}

// Resolve returns the absolute path of a record below root.
func Resolve(root string, record *FileRecord) string {
	if record == nil {
		return root
	}
	return filepath.Join(root, filepath.FromSlash(record.Path))
}

// Open opens the record's file below root for reading.
func Open(root string, record *FileRecord) (*os.File, error) {
	return os.Open(Resolve(root, record))
}
