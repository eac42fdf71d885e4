// Package macro walks the script blocks of a component and turns compile-time
// declarations (defineProps, defineEmits, defineModel, ...) and ordinary
// declarations into an ordered list of location items.
package macro

import (
	"fmt"

	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

type ItemKind int

const (
	ItemImport ItemKind = iota
	ItemDeclaration
	ItemProps
	ItemEmits
	ItemSlots
	ItemModel
	ItemExpose
	ItemExport
	ItemTemplate
	ItemGeneric
	ItemOptions
)

func (k ItemKind) String() string {
	switch k {
	case ItemImport:
		return "import"
	case ItemDeclaration:
		return "declaration"
	case ItemProps:
		return "props"
	case ItemEmits:
		return "emits"
	case ItemSlots:
		return "slots"
	case ItemModel:
		return "model"
	case ItemExpose:
		return "expose"
	case ItemExport:
		return "export"
	case ItemTemplate:
		return "template"
	case ItemGeneric:
		return "generic"
	case ItemOptions:
		return "options"
	}
	return fmt.Sprintf("ItemKind(%d)", int(k))
}

// Item is one location item. Generated items were synthesized and have no
// source node; their Span is the span of the item they derive from, if any.
type Item struct {
	Kind      ItemKind
	Span      position.Span
	Generated bool

	Block     *sfc.Block
	Statement *script.Statement
	Call      *script.Call

	// Name is the model name for models, the prop or event name for items
	// derived from a model, and the declared name for declarations.
	Name string

	// Local is the variable the macro result is assigned to, if any.
	Local     string
	LocalSpan position.Span

	// Type is the declared type text. TypeSpan is set when the text was copied
	// verbatim from the source.
	Type        string
	TypeSpan    position.Span
	HasTypeSpan bool

	// Runtime is the runtime argument of the macro, e.g. a props options object.
	Runtime     string
	RuntimeSpan position.Span
	HasRuntime  bool

	// Synthetic names the generated variable that holds the original call
	// when the type has to be recovered by reference.
	Synthetic string

	Required     bool
	Defaults     string
	DefaultsSpan position.Span

	Import   *script.ImportDecl
	Bindings []script.Binding
	Generic  *script.GenericParameter
}

func (it *Item) String() string {
	s := it.Kind.String()
	if it.Generated {
		s += "*"
	}
	if it.Name != "" {
		s += " " + it.Name
	}
	if it.Type != "" {
		s += ": " + it.Type
	}
	return s
}

// BindingSource says where a template-visible binding comes from.
type BindingSource int

const (
	BindingSetup BindingSource = iota
	BindingScript
	BindingImport
)

type Binding struct {
	Name   string
	Span   position.Span
	Source BindingSource
}
