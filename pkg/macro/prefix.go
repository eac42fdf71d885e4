package macro

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/walteh/sfc-typer/pkg/diagnostic"
	"github.com/walteh/sfc-typer/pkg/position"
	"github.com/walteh/sfc-typer/pkg/script"
	"github.com/walteh/sfc-typer/pkg/sfc"
)

var identRe = regexp.MustCompile(`[A-Za-z_$][\w$]*`)

type userIdent struct {
	name string
	span position.Span
}

// reservePrefix returns prefix, or prefix extended with a counter when a user
// identifier already starts with it. Each colliding identifier is reported once.
func (r *resolver) reservePrefix(prefix string, tmpl *sfc.Block, generics script.GenericParameters) string {
	var idents []userIdent
	for _, s := range r.res.Scripts {
		for _, t := range s.Program.Tokens {
			if t.Kind == script.Ident {
				idents = append(idents, userIdent{t.Text, t.Span})
			}
		}
	}
	for _, g := range generics {
		idents = append(idents, userIdent{g.Name, g.Span})
	}
	if tmpl != nil {
		content := tmpl.Content.Text(r.src)
		for _, m := range identRe.FindAllStringIndex(content, -1) {
			idents = append(idents, userIdent{content[m[0]:m[1]], position.NewSpan(tmpl.Content.Start+m[0], tmpl.Content.Start+m[1])})
		}
	}

	reported := map[string]bool{}
	var colliding []userIdent
	for _, id := range idents {
		if strings.HasPrefix(id.name, prefix) && !reported[id.name] {
			reported[id.name] = true
			colliding = append(colliding, id)
		}
	}
	if len(colliding) == 0 {
		return prefix
	}

	chosen := prefix
	for n := 1; ; n++ {
		chosen = prefix + strconv.Itoa(n) + "_"
		if !anyHasPrefix(colliding, chosen) {
			break
		}
	}
	for _, id := range colliding {
		r.res.Diagnostics = append(r.res.Diagnostics, diagnostic.Diagnostic{
			Message:  "identifier " + id.name + " uses the reserved prefix " + prefix + "; generated names use " + chosen + " instead",
			Span:     id.span,
			Severity: diagnostic.SeverityWarning,
			Code:     diagnostic.CodeReservedIdentifier,
		})
	}
	return chosen
}

func anyHasPrefix(ids []userIdent, prefix string) bool {
	for _, id := range ids {
		if strings.HasPrefix(id.name, prefix) {
			return true
		}
	}
	return false
}
