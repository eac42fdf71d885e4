package script

import (
	"github.com/walteh/sfc-typer/pkg/position"
)

type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprIdent
	ExprString
	ExprNumber
	ExprObject
	ExprArray
	ExprCall
	ExprFunction
)

// Expr is a shallowly classified expression. Only the shapes the resolver
// inspects are broken down further.
type Expr struct {
	Kind   ExprKind
	Span   position.Span
	Tokens Tokens
	Call   *Call
	Object *Object

	// function expressions
	Params  Tokens
	Body    Tokens
	HasBody bool
}

func (e *Expr) Text(src string) string {
	if e == nil {
		return ""
	}
	return e.Span.Text(src)
}

// Call is `callee<TypeArgs>(Args)` where callee is a dotted identifier path.
type Call struct {
	Callee     string
	CalleeSpan position.Span
	Span       position.Span

	HasTypeArgs bool
	// TypeArgsSpan covers the text between `<` and `>`.
	TypeArgsSpan position.Span
	TypeArgs     []position.Span
	// Malformed is set when a `<` follows the callee but never closes.
	Malformed bool

	Args     []*Expr
	ArgsSpan position.Span
	// Unterminated is set when the argument list never closes.
	Unterminated bool
}

type Object struct {
	Span       position.Span
	Properties []*Property
}

type Property struct {
	Key       string
	KeySpan   position.Span
	Value     *Expr
	Shorthand bool
	Method    bool
	Spread    bool
	Computed  bool
	Body      Tokens
	Span      position.Span
}

// Get returns the last plain property named key.
func (o *Object) Get(key string) *Property {
	if o == nil {
		return nil
	}
	var found *Property
	for _, p := range o.Properties {
		if !p.Spread && !p.Computed && p.Key == key {
			found = p
		}
	}
	return found
}

func ParseExpr(src string, ts Tokens) *Expr {
	if len(ts) == 0 {
		return nil
	}
	e := &Expr{Kind: ExprOther, Span: ts.Span(0), Tokens: ts}
	last := len(ts) - 1
	switch {
	case len(ts) == 1 && ts[0].Kind == Ident:
		e.Kind = ExprIdent
	case len(ts) == 1 && ts[0].Kind == String:
		e.Kind = ExprString
	case len(ts) == 1 && ts[0].Kind == Number:
		e.Kind = ExprNumber
	case ts[0].IsPunct("{") && ts.Match(0) == last:
		e.Kind = ExprObject
		e.Object = parseObject(src, ts)
	case ts[0].IsPunct("[") && ts.Match(0) == last:
		e.Kind = ExprArray
	case parseFunction(e, ts):
		e.Kind = ExprFunction
	case ts[0].IsPunct("(") && ts.Match(0) == last && last > 1:
		return ParseExpr(src, ts[1:last])
	default:
		if c := parseCall(src, ts); c != nil {
			e.Kind = ExprCall
			e.Call = c
		}
	}
	return e
}

func parseCall(src string, ts Tokens) *Call {
	if ts[0].Kind != Ident {
		return nil
	}
	j := 1
	for j+1 < len(ts) && ts[j].IsPunct(".") && ts[j+1].Kind == Ident {
		j += 2
	}
	c := &Call{
		Callee:     ts[:j].Text(src),
		CalleeSpan: ts[:j].Span(0),
		Span:       ts.Span(0),
	}

	if j < len(ts) && ts[j].IsPunct("<") {
		m := ts.MatchAngle(j)
		if m < 0 {
			c.Malformed = true
			c.TypeArgsSpan = position.NewSpan(ts[j].Span.End, ts[len(ts)-1].Span.End)
			return c
		}
		if !ts[m].IsPunct(">") {
			return nil
		}
		c.HasTypeArgs = true
		c.TypeArgsSpan = position.NewSpan(ts[j].Span.End, ts[m].Span.Start)
		for _, arg := range ts[j+1 : m].Split(",", true) {
			if len(arg) > 0 {
				c.TypeArgs = append(c.TypeArgs, arg.Span(0))
			}
		}
		j = m + 1
	}

	if j >= len(ts) || !ts[j].IsPunct("(") {
		return nil
	}
	m := ts.Match(j)
	closeAt := ts[len(ts)-1].Span.End
	switch {
	case m < 0:
		c.Unterminated = true
		m = len(ts)
	case m != len(ts)-1:
		return nil
	default:
		closeAt = ts[m].Span.Start
	}
	c.ArgsSpan = position.NewSpan(ts[j].Span.End, closeAt)
	for _, arg := range ts[j+1 : m].Split(",", false) {
		if len(arg) > 0 {
			c.Args = append(c.Args, ParseExpr(src, arg))
		}
	}
	return c
}

// parseFunction recognizes function expressions and arrow functions and
// records their parameter and block body tokens.
func parseFunction(e *Expr, ts Tokens) bool {
	i := 0
	if ts[0].IsIdent("async") && len(ts) > 1 {
		i = 1
	}
	if ts[i].IsIdent("function") {
		open := ts[i:].IndexTop(func(t Token) bool { return t.IsPunct("(") }, false)
		if open < 0 {
			return false
		}
		open += i
		close := ts.Match(open)
		if close < 0 {
			return false
		}
		e.Params = ts[open+1 : close]
		setBody(e, ts, close+1, true)
		return true
	}

	arrow := ts.IndexTop(func(t Token) bool { return t.IsPunct("=>") }, false)
	if arrow < 0 {
		return false
	}
	switch {
	case ts[i].Kind == Ident && arrow == i+1:
		e.Params = ts[i : i+1]
	default:
		if ts[i].IsPunct("<") {
			m := ts.MatchAngle(i)
			if m < 0 {
				return false
			}
			i = m + 1
		}
		if i >= arrow || !ts[i].IsPunct("(") {
			return false
		}
		close := ts.Match(i)
		if close < 0 || close >= arrow || (close+1 != arrow && !ts[close+1].IsPunct(":")) {
			return false
		}
		e.Params = ts[i+1 : close]
	}
	setBody(e, ts, arrow+1, false)
	return true
}

func setBody(e *Expr, ts Tokens, from int, annotated bool) {
	open := -1
	if from < len(ts) && ts[from].IsPunct("{") {
		open = from
	} else if annotated {
		// skip a return type annotation on function expressions
		for k := from; k < len(ts); k++ {
			if ts[k].IsPunct("{") && ts.Match(k) == len(ts)-1 {
				open = k
				break
			}
		}
	}
	if open < 0 {
		return
	}
	if close := ts.Match(open); close == len(ts)-1 {
		e.Body = ts[open+1 : close]
		e.HasBody = true
	}
}

var propertyModifiers = map[string]bool{"async": true, "get": true, "set": true, "static": true}

func parseObject(src string, ts Tokens) *Object {
	o := &Object{Span: ts.Span(0)}
	for _, part := range innerOf(ts).Split(",", false) {
		if p := parseProperty(src, part); p != nil {
			o.Properties = append(o.Properties, p)
		}
	}
	return o
}

func parseProperty(src string, ts Tokens) *Property {
	if len(ts) == 0 {
		return nil
	}
	p := &Property{Span: ts.Span(0)}
	if ts[0].IsPunct("...") {
		p.Spread = true
		p.Value = ParseExpr(src, ts[1:])
		return p
	}

	i := 0
	for i+1 < len(ts) && ((ts[i].Kind == Ident && propertyModifiers[ts[i].Text]) || ts[i].IsPunct("*")) {
		n := ts[i+1]
		if n.Kind != Ident && n.Kind != String && n.Kind != Number && !n.IsPunct("[") && !n.IsPunct("*") {
			break
		}
		i++
	}

	key := ts[i]
	next := i + 1
	switch {
	case key.Kind == Ident || key.Kind == Number:
		p.Key, p.KeySpan = key.Text, key.Span
	case key.Kind == String:
		p.Key, p.KeySpan = key.StringValue(), key.Span
	case key.IsPunct("["):
		m := ts.Match(i)
		if m < 0 {
			return p
		}
		p.Computed = true
		p.Key, p.KeySpan = ts[i+1:m].Text(src), ts[i+1:m].Span(key.Span.End)
		next = m + 1
	default:
		return p
	}

	if next < len(ts) && ts[next].IsPunct("?") {
		next++
	}
	switch {
	case next >= len(ts):
		p.Shorthand = true
		p.Value = ParseExpr(src, ts[i:next])
	case ts[next].IsPunct(":"):
		p.Value = ParseExpr(src, ts[next+1:])
	case ts[next].IsPunct("(") || ts[next].IsPunct("<"):
		p.Method = true
		fn := &Expr{}
		open := next
		if ts[open].IsPunct("<") {
			if m := ts.MatchAngle(open); m > 0 {
				open = m + 1
			}
		}
		if open < len(ts) && ts[open].IsPunct("(") {
			if close := ts.Match(open); close > 0 {
				fn.Params = ts[open+1 : close]
				setBody(fn, ts, close+1, true)
			}
		}
		p.Body = fn.Body
	case ts[next].IsPunct("="):
		p.Shorthand = true
		p.Value = ParseExpr(src, ts[i:i+1])
	}
	return p
}
