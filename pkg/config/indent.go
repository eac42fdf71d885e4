package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/editorconfig/editorconfig-core-go/v2"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
)

const defaultIndentSize = 2

// IndentFor resolves the indentation unit for path from the .editorconfig
// file in root. It returns "" when nothing applies, leaving the builder's
// default in place.
func IndentFor(fsys afero.Fs, root, path string) (string, error) {
	data, err := afero.ReadFile(fsys, filepath.Join(root, ".editorconfig"))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", errors.Errorf("reading .editorconfig: %w", err)
	}

	ec, err := editorconfig.Parse(bytes.NewReader(data))
	if err != nil {
		return "", errors.Errorf("parsing .editorconfig: %w", err)
	}

	rel, err := filepath.Rel(root, path)
	if err != nil {
		rel = path
	}
	def, err := ec.GetDefinitionForFilename(filepath.ToSlash(rel))
	if err != nil {
		return "", errors.Errorf("matching .editorconfig for %s: %w", rel, err)
	}

	switch def.IndentStyle {
	case editorconfig.IndentStyleTab:
		return "\t", nil
	case editorconfig.IndentStyleSpaces:
		n, err := strconv.Atoi(def.IndentSize)
		if err != nil || n <= 0 {
			n = def.TabWidth
		}
		if n <= 0 {
			n = defaultIndentSize
		}
		return strings.Repeat(" ", n), nil
	}
	return "", nil
}
