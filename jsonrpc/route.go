package jsonrpc

import (
	"fmt"
	"slices"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// splitMethod splits a request method of the form "<name>/<seg1>/<seg2>..."
// into the routing name and the trailing path ("/<seg1>/<seg2>...").
func splitMethod(method string) (name, tail string) {
	i := strings.IndexByte(method, '/')
	if i < 0 {
		return method, ""
	}
	return method[:i], method[i:]
}

// deriveRoute builds "/{p1}/{p2}..." from the declared path params.
func deriveRoute(params []Param) string {
	var b strings.Builder
	for _, p := range params {
		b.WriteString("/{")
		b.WriteString(p.Name)
		b.WriteString("}")
	}
	return b.String()
}

// route matches the tail of a method name against a template. Trailing
// segments may be left off: "/42" matches "/{userId}/{field}" with field
// absent.
type route struct {
	// prefixes[0] is the whole template, then ever shorter segment prefixes.
	prefixes []*uritemplate.Template
}

// compileRoute compiles the method's route template. Literal segments must
// match verbatim; every placeholder must name a declared path parameter and
// every declared path parameter must appear in the template.
func compileRoute(m *Method) (*route, error) {
	params := m.PathParams()
	if len(params) == 0 {
		if m.Route != "" {
			return nil, fmt.Errorf("route %q declared without path parameters", m.Route)
		}
		return nil, nil
	}
	tmpl := m.Route
	if tmpl == "" {
		tmpl = deriveRoute(params)
	}
	tmpl = "/" + strings.Trim(tmpl, "/")

	full, err := uritemplate.New(tmpl)
	if err != nil {
		return nil, fmt.Errorf("route %q: %w", tmpl, err)
	}
	vars := full.Varnames()
	for _, p := range params {
		if !slices.Contains(vars, p.Name) {
			return nil, fmt.Errorf("route %q does not declare path parameter %q", tmpl, p.Name)
		}
	}
	for _, v := range vars {
		if !slices.ContainsFunc(params, func(p Param) bool { return p.Name == v }) {
			return nil, fmt.Errorf("route %q placeholder %q has no declared parameter", tmpl, v)
		}
	}

	rt := &route{prefixes: []*uritemplate.Template{full}}
	segments := splitSegments(tmpl[1:])
	for n := len(segments) - 1; n > 0; n-- {
		prefix, err := uritemplate.New("/" + strings.Join(segments[:n], "/"))
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", tmpl, err)
		}
		rt.prefixes = append(rt.prefixes, prefix)
	}
	return rt, nil
}

// match returns the captured placeholder values for tail, or nil when tail
// matches no prefix of the template. Empty captures count as absent.
// Segments may hold any characters except '/'; captures are returned as
// sent.
func (rt *route) match(tail string) map[string]string {
	if rt == nil {
		return nil
	}
	tail = strings.TrimSuffix(tail, "/")
	if tail == "" {
		return nil
	}
	tail = escapeTail(tail)
	for _, tmpl := range rt.prefixes {
		vals := tmpl.Match(tail)
		if vals == nil {
			continue
		}
		out := make(map[string]string, len(vals))
		for name, v := range vals {
			if s := v.String(); s != "" {
				out[name] = s
			}
		}
		return out
	}
	return nil
}

// splitSegments splits a template at the '/' characters outside expressions.
func splitSegments(tmpl string) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(tmpl); i++ {
		switch tmpl[i] {
		case '{':
			depth++
		case '}':
			depth--
		case '/':
			if depth == 0 {
				out = append(out, tmpl[start:i])
				start = i + 1
			}
		}
	}
	return append(out, tmpl[start:])
}

// escapeTail percent-encodes every byte of tail outside the unreserved set,
// keeping the '/' separators. Template placeholders only capture unreserved
// and percent-encoded characters, and Match decodes what they capture.
func escapeTail(tail string) string {
	var b strings.Builder
	for i := 0; i < len(tail); i++ {
		c := tail[i]
		if c == '/' || unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

const upperhex = "0123456789ABCDEF"

func unreserved(c byte) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || '0' <= c && c <= '9' ||
		c == '-' || c == '.' || c == '_' || c == '~'
}
