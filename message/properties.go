package message

import (
	"sort"
	"strings"
)

// Properties is a string-to-string map carried as a ;-separated key=value
// payload under the application/properties encoding.
type Properties map[string]string

// ParseProperties parses a ;-separated key=value list. Parsing is lenient:
// a piece without `=` becomes a key with an empty value, and empty pieces
// are skipped. Selector property parsing is strict instead; see the keyexpr
// package.
func ParseProperties(s string) Properties {
	props := Properties{}
	for _, piece := range strings.Split(s, ";") {
		if piece == "" {
			continue
		}
		if eq := strings.IndexByte(piece, '='); eq != -1 {
			props[piece[:eq]] = piece[eq+1:]
		} else {
			props[piece] = ""
		}
	}
	return props
}

// String formats the properties as a ;-separated key=value list with keys
// sorted for deterministic output.
func (p Properties) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(p[k])
	}
	return b.String()
}
