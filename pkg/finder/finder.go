package finder

import (
	"context"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

// DefaultPattern selects component files when no matcher is given.
const DefaultPattern = "**/*.vue"

// ComponentFinder finds component files below a directory.
type ComponentFinder interface {
	// FindComponents returns the files under dir for which match reports
	// true. match receives slash-separated paths relative to dir.
	FindComponents(ctx context.Context, dir string, match func(rel string) bool) ([]string, error)
}

type DefaultFinder struct {
	fs afero.Fs
}

func NewDefaultFinder(fs afero.Fs) *DefaultFinder {
	return &DefaultFinder{fs: fs}
}

// FindComponents implements ComponentFinder. Results are sorted.
func (f *DefaultFinder) FindComponents(ctx context.Context, dir string, match func(rel string) bool) ([]string, error) {
	if match == nil {
		match = func(rel string) bool {
			ok, _ := doublestar.Match(DefaultPattern, rel)
			return ok
		}
	}

	var files []string
	err := afero.Walk(f.fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return nil
		}
		if match(filepath.ToSlash(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Errorf("finding components in %s: %w", dir, err)
	}

	sort.Strings(files)
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("count", len(files)).Msg("found components")
	return files, nil
}
