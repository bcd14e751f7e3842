package keyexpr

import (
	"fmt"
	"strings"

	"github.com/c360/keystream/errors"
)

// Selector identifies a selection of resources: a key expression selecting
// keys plus an optional value selector filtering the matching values.
//
// Structure of a selector string:
//
//	/s1/s2/.../sn?x>1&y<2(p1=v1;p2=v2)[a;b]
//	|key_selector||------ value_selector ------|
//
// The value selector decomposes as filter(properties)[fragment].
type Selector struct {
	key KeyExpr
	// raw value selector, including the leading `?` for round-trip display
	valueSelector string
}

// ParseSelector splits a selector string at the first unescaped `?` into a
// key selector and a raw value selector. A `\?` sequence does not split.
func ParseSelector(s string) Selector {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '?':
			return Selector{key: New(s[:i]), valueSelector: s[i:]}
		}
	}
	return Selector{key: New(s)}
}

// NewSelector builds a Selector from an already constructed key expression
// with no value selector.
func NewSelector(key KeyExpr) Selector {
	return Selector{key: key}
}

// SelectorFrom converts any member of the closed convertible union into a
// Selector: Selector, *Selector, KeyExpr, *KeyExpr, string, uint64 or int.
func SelectorFrom(v any) (Selector, error) {
	switch s := v.(type) {
	case Selector:
		return s, nil
	case *Selector:
		return *s, nil
	case string:
		return ParseSelector(s), nil
	default:
		k, err := From(v)
		if err != nil {
			return Selector{}, errors.NewConversion(fmt.Sprintf("%T", v), "Selector")
		}
		return NewSelector(k), nil
	}
}

// KeySelector returns the key expression part of the selector.
func (s Selector) KeySelector() KeyExpr {
	return s.key
}

// ValueSelectorString returns the raw value selector: all characters
// starting from `?`, or the empty string when the selector has none.
func (s Selector) ValueSelectorString() string {
	return s.valueSelector
}

// String reassembles the selector for display.
func (s Selector) String() string {
	return s.key.String() + s.valueSelector
}

// ParseValueSelector parses the value selector part of this selector.
func (s Selector) ParseValueSelector() (ValueSelector, error) {
	return ParseValueSelector(s.valueSelector)
}

// ValueSelector is the decomposed form of a selector's value selector.
// Fragment is nil when the selector carries no [...] section.
type ValueSelector struct {
	Filter     string
	Properties map[string]string
	Fragment   []string
}

// ParseValueSelector parses a value selector string of the form
// filter(properties)[fragment]. A leading `?` is accepted and ignored.
// Properties are a ;-separated key=value list; a piece without `=` and a
// duplicated key are both rejected with a ParseError naming the offending
// token. Duplicate keys are rejected because they might otherwise enable
// parameter-pollution style attacks downstream. Absent (...) yields an
// empty property map; absent [...] yields a nil fragment.
func ParseValueSelector(s string) (ValueSelector, error) {
	input := s
	s = strings.TrimPrefix(s, "?")

	vs := ValueSelector{Properties: map[string]string{}}

	end := strings.IndexAny(s, "([")
	if end == -1 {
		vs.Filter = s
		return vs, nil
	}
	vs.Filter = s[:end]
	rest := s[end:]

	if rest[0] == '(' {
		closing := strings.IndexByte(rest, ')')
		if closing == -1 {
			return ValueSelector{}, errors.NewParse(input, "(", "unclosed properties")
		}
		if err := parseProperties(input, rest[1:closing], vs.Properties); err != nil {
			return ValueSelector{}, err
		}
		rest = rest[closing+1:]
		if rest != "" && rest[0] != '[' {
			return ValueSelector{}, errors.NewParse(input, rest, "unexpected characters after properties")
		}
	}

	if rest == "" {
		return vs, nil
	}

	// rest starts with the fragment section
	closing := strings.IndexByte(rest, ']')
	if closing == -1 {
		return ValueSelector{}, errors.NewParse(input, "[", "unclosed fragment")
	}
	if trailing := rest[closing+1:]; trailing != "" {
		return ValueSelector{}, errors.NewParse(input, trailing, "unexpected characters after fragment")
	}
	body := rest[1:closing]
	if body == "" {
		vs.Fragment = []string{}
	} else {
		vs.Fragment = strings.Split(body, ";")
	}
	return vs, nil
}

// parseProperties fills dst from a ;-separated key=value list.
func parseProperties(input, body string, dst map[string]string) error {
	if body == "" {
		return nil
	}
	for _, piece := range strings.Split(body, ";") {
		eq := strings.IndexByte(piece, '=')
		if eq == -1 {
			return errors.NewParse(input, piece, "property without '='")
		}
		key := piece[:eq]
		if _, dup := dst[key]; dup {
			return errors.NewParse(input, key, "duplicate property key")
		}
		dst[key] = piece[eq+1:]
	}
	return nil
}
