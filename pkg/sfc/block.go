// Package sfc splits a component file into its top-level blocks.
//
//	<script setup lang="ts" generic="T">  Open
//	  ...                                 Content
//	</script>                             Close
//
// Blocks are ordered, never overlap, and together with the gaps between them
// reconstruct the source exactly.
package sfc

import (
	"strings"

	"github.com/go-enry/go-enry/v2"
	"github.com/walteh/sfc-typer/pkg/position"
)

type BlockType int

const (
	BlockScript BlockType = iota
	BlockScriptSetup
	BlockTemplate
	BlockStyle
	BlockCustom
	BlockEmpty
)

func (t BlockType) String() string {
	switch t {
	case BlockScript:
		return "script"
	case BlockScriptSetup:
		return "script-setup"
	case BlockTemplate:
		return "template"
	case BlockStyle:
		return "style"
	case BlockCustom:
		return "custom"
	case BlockEmpty:
		return "empty"
	}
	return "unknown"
}

type Attribute struct {
	Name      string
	Value     string
	HasValue  bool
	Span      position.Span
	ValueSpan position.Span
}

type Block struct {
	Type  BlockType
	Tag   string
	Attrs []Attribute

	Lang        string
	Setup       bool
	Src         string
	Generic     string
	GenericSpan position.Span

	Open    position.Span
	Content position.Span
	Close   position.Span
}

// Span covers the block from its open tag through its close tag.
func (b *Block) Span() position.Span {
	return position.NewSpan(b.Open.Start, b.Close.End)
}

func (b *Block) Attr(name string) (Attribute, bool) {
	for _, a := range b.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Attribute{}, false
}

func (b *Block) HasGeneric() bool {
	_, ok := b.Attr("generic")
	return ok && strings.TrimSpace(b.Generic) != ""
}

// IsTypeScript reports whether the script block is written in TypeScript.
func (b *Block) IsTypeScript() bool {
	switch strings.ToLower(b.Lang) {
	case "ts", "tsx", "typescript":
		return true
	}
	return false
}

// Language names the block's language. The lang attribute wins; otherwise the
// block type decides, and custom blocks fall back to their tag name.
func (b *Block) Language() string {
	if b.Lang != "" {
		if lang, ok := enry.GetLanguageByAlias(b.Lang); ok {
			return lang
		}
		return b.Lang
	}
	switch b.Type {
	case BlockScript, BlockScriptSetup:
		return "JavaScript"
	case BlockTemplate:
		return "HTML"
	case BlockStyle:
		return "CSS"
	}
	if lang, ok := enry.GetLanguageByAlias(b.Tag); ok {
		return lang
	}
	return ""
}

func blockTypeFor(tag string, attrs []Attribute) BlockType {
	switch strings.ToLower(tag) {
	case "script":
		for _, a := range attrs {
			if strings.EqualFold(a.Name, "setup") {
				return BlockScriptSetup
			}
		}
		return BlockScript
	case "template":
		return BlockTemplate
	case "style":
		return BlockStyle
	}
	return BlockCustom
}

func newBlock(typ BlockType, tag string, attrs []Attribute, open, content, close position.Span) *Block {
	b := &Block{
		Type:    typ,
		Tag:     tag,
		Attrs:   attrs,
		Open:    open,
		Content: content,
		Close:   close,
	}
	for _, a := range attrs {
		switch strings.ToLower(a.Name) {
		case "lang":
			b.Lang = a.Value
		case "setup":
			b.Setup = true
		case "src":
			b.Src = a.Value
		case "generic":
			b.Generic = a.Value
			b.GenericSpan = a.ValueSpan
		}
	}
	return b
}
