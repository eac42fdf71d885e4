package builder

import (
	"strconv"
	"strings"

	"github.com/walteh/sfc-typer/pkg/script"
)

// Import is one imported name. Imported is "default" for default imports, "*"
// for namespace imports and empty for side-effect imports. Alias is empty
// when the local name equals Imported.
type Import struct {
	Source   string
	Imported string
	Alias    string
	TypeOnly bool
}

// Local is the name the import binds.
func (im Import) Local() string {
	if im.Alias != "" {
		return im.Alias
	}
	return im.Imported
}

func (im Import) specifier() string {
	var sb strings.Builder
	if im.TypeOnly {
		sb.WriteString("type ")
	}
	sb.WriteString(im.Imported)
	if im.Alias != "" {
		sb.WriteString(" as ")
		sb.WriteString(im.Alias)
	}
	return sb.String()
}

func importOf(decl *script.ImportDecl, spec script.ImportSpecifier) Import {
	im := Import{Source: decl.Source, Imported: spec.Imported, TypeOnly: decl.TypeOnly || spec.TypeOnly}
	if spec.Local != spec.Imported {
		im.Alias = spec.Local
	}
	return im
}

// importSet keeps the first occurrence of each import in insertion order.
type importSet struct {
	seen map[Import]bool
	list []Import
}

func (s *importSet) has(im Import) bool {
	return s.seen[im]
}

func (s *importSet) add(im Import) bool {
	if s.seen == nil {
		s.seen = map[Import]bool{}
	}
	if s.seen[im] {
		return false
	}
	s.seen[im] = true
	s.list = append(s.list, im)
	return true
}

// statements renders named imports grouped by source, in first-seen order.
// Sources whose names are all type-only use `import type`.
func statements(ims []Import) []string {
	var order []string
	bySource := map[string][]Import{}
	for _, im := range ims {
		if _, ok := bySource[im.Source]; !ok {
			order = append(order, im.Source)
		}
		bySource[im.Source] = append(bySource[im.Source], im)
	}

	var out []string
	for _, src := range order {
		group := bySource[src]
		typeOnly := true
		for _, im := range group {
			typeOnly = typeOnly && im.TypeOnly
		}
		specs := make([]string, len(group))
		for i, im := range group {
			if typeOnly {
				im.TypeOnly = false
			}
			specs[i] = im.specifier()
		}
		kw := "import "
		if typeOnly {
			kw = "import type "
		}
		out = append(out, kw+"{ "+strings.Join(specs, ", ")+" } from "+strconv.Quote(src)+";")
	}
	return out
}
