// Package filesystem exposes a read-only directory listing so clients can
// pick a library root or a Calibre catalog without typing paths by hand.
package filesystem

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const catalogFilename = "metadata.db"

type Service struct{}

func NewService() *Service {
	return &Service{}
}

// BrowseOptions has the same structure as BrowseQuery to allow direct type conversion.
type BrowseOptions BrowseQuery

func (s *Service) Browse(opts BrowseOptions) (*BrowseResponse, error) {
	path := opts.Path
	if path == "" {
		path = "/"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	// Resolve symlinks so listings can't escape through a link loop.
	realPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		realPath = absPath
	}

	info, err := os.Stat(realPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, os.ErrInvalid
	}

	dirEntries, err := os.ReadDir(realPath)
	if err != nil {
		return nil, err
	}

	entries := []Entry{}
	for _, de := range dirEntries {
		name := de.Name()

		if !opts.ShowHidden && strings.HasPrefix(name, ".") {
			continue
		}
		if opts.Search != "" && !strings.Contains(strings.ToLower(name), strings.ToLower(opts.Search)) {
			continue
		}

		entryPath := filepath.Join(realPath, name)
		entries = append(entries, Entry{
			Name:      name,
			Path:      entryPath,
			IsDir:     de.IsDir(),
			IsCatalog: de.IsDir() && isCatalogDir(entryPath),
		})
	}

	// Directories first, then files, both alphabetical.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir != entries[j].IsDir {
			return entries[i].IsDir
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})

	total := len(entries)

	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	parentPath := ""
	if realPath != "/" {
		parentPath = filepath.Dir(realPath)
	}

	return &BrowseResponse{
		CurrentPath: realPath,
		ParentPath:  parentPath,
		Entries:     entries[start:end],
		Total:       total,
		HasMore:     end < total,
	}, nil
}

func isCatalogDir(dir string) bool {
	info, err := os.Stat(filepath.Join(dir, catalogFilename))
	return err == nil && !info.IsDir()
}
