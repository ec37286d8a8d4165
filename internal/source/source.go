package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ivlev/formation2video/internal/payload"
	"github.com/ivlev/formation2video/internal/system"
)

// Dance is one payload together with where it came from.
type Dance struct {
	Path    string
	Index   int    // position inside a multi-dance export, 0 otherwise
	Name    string // card stem, suffixed with the index for array exports
	Payload *payload.Payload
}

type Source interface {
	DanceCount() int
	Dance(index int) Dance
	Close() error
}

// PayloadSource reads export-json files: a single file, or every payload
// file of a directory in name order.
type PayloadSource struct {
	paths  []string
	dances []Dance
	cache  *payload.Cache
}

func NewPayloadSource(path string, cache *payload.Cache) (*PayloadSource, error) {
	if cache == nil {
		cache = payload.NewCache()
	}
	paths, err := listPayloads(path)
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("в %s не найдено payload-файлов", path)
	}

	s := &PayloadSource{paths: paths, cache: cache}
	for _, p := range paths {
		all, err := cache.Load(p)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", p, err)
		}
		stem := payload.Stem(p)
		for i, pl := range all {
			name := stem
			if len(all) > 1 {
				name = fmt.Sprintf("%s#%d", stem, i+1)
			}
			s.dances = append(s.dances, Dance{Path: p, Index: i, Name: name, Payload: pl})
		}
	}
	return s, nil
}

func listPayloads(path string) ([]string, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, entry := range entries {
		if !entry.IsDir() && system.HasExtension(entry.Name(), system.PayloadExtensions) {
			paths = append(paths, filepath.Join(path, entry.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func (s *PayloadSource) DanceCount() int {
	return len(s.dances)
}

func (s *PayloadSource) Dance(index int) Dance {
	return s.dances[index]
}

// Paths returns the files the source was built from.
func (s *PayloadSource) Paths() []string {
	return append([]string(nil), s.paths...)
}

// Close drops the source's files from the shared cache.
func (s *PayloadSource) Close() error {
	for _, p := range s.paths {
		s.cache.Invalidate(p)
	}
	return nil
}
