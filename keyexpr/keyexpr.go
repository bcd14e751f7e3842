// Package keyexpr implements resource key expressions and selectors.
//
// A key expression names a set of resources. It is a /-separated path whose
// chunks may use the wildcards `*` (exactly one chunk) and `**` (zero or
// more chunks). For efficiency a key expression may also be aliased to a
// small numeric id (its scope) previously interned with the engine, with an
// optional suffix appended to the alias expansion.
package keyexpr

import (
	"fmt"
	"strings"

	"github.com/c360/keystream/errors"
)

// KeyExpr represents a resource key or key pattern, optionally scoped by a
// numeric alias. Scope 0 means the suffix is the full expression.
type KeyExpr struct {
	scope  uint64
	suffix string
}

// IDSuffix pairs a numeric alias with a suffix, for use with From.
type IDSuffix struct {
	ID     uint64
	Suffix string
}

// New creates an unscoped KeyExpr from a literal expression. The reserved
// character `#` must not appear in expr; construction does not re-validate
// this, it is the caller's responsibility.
func New(expr string) KeyExpr {
	return KeyExpr{suffix: expr}
}

// FromID creates a KeyExpr referring to a previously interned numeric alias.
func FromID(id uint64) KeyExpr {
	return KeyExpr{scope: id}
}

// FromIDWithSuffix creates a KeyExpr referring to a numeric alias with a
// suffix concatenated to its expansion.
func FromIDWithSuffix(id uint64, suffix string) KeyExpr {
	return KeyExpr{scope: id, suffix: suffix}
}

// From converts any member of the closed convertible union into a KeyExpr:
// KeyExpr, *KeyExpr, string, uint64, int (non-negative), or IDSuffix.
// Any other type yields a ConversionError.
func From(v any) (KeyExpr, error) {
	switch k := v.(type) {
	case KeyExpr:
		return k, nil
	case *KeyExpr:
		return *k, nil
	case string:
		return New(k), nil
	case uint64:
		return FromID(k), nil
	case int:
		if k < 0 {
			return KeyExpr{}, errors.NewConversion("negative int", "KeyExpr")
		}
		return FromID(uint64(k)), nil
	case IDSuffix:
		return FromIDWithSuffix(k.ID, k.Suffix), nil
	default:
		return KeyExpr{}, errors.NewConversion(fmt.Sprintf("%T", v), "KeyExpr")
	}
}

// Scope returns the numeric scope (0 marks the global, unscoped case).
func (k KeyExpr) Scope() uint64 {
	return k.scope
}

// Suffix returns the string suffix (the complete expression when scope is 0).
func (k KeyExpr) Suffix() string {
	return k.suffix
}

// String renders the expression. Scoped expressions display as "id:suffix"
// since the alias expansion is only known to the engine.
func (k KeyExpr) String() string {
	if k.scope == 0 {
		return k.suffix
	}
	if k.suffix == "" {
		return fmt.Sprintf("%d:", k.scope)
	}
	return fmt.Sprintf("%d:%s", k.scope, k.suffix)
}

// Join appends a chunk to the expression with a `/` separator.
func (k KeyExpr) Join(chunk string) KeyExpr {
	if k.suffix == "" {
		return KeyExpr{scope: k.scope, suffix: chunk}
	}
	return KeyExpr{scope: k.scope, suffix: k.suffix + "/" + chunk}
}

// Intersects reports whether the sets of keys denoted by a and b overlap.
//
// Expressions with different scopes never intersect, even if their alias
// expansions could overlap as strings; cross-scope comparison is defined as
// non-intersecting. Within the same scope, intersection is computed on the
// /-delimited suffix chunks: a literal chunk matches only itself, `*`
// matches exactly one chunk and `**` matches zero or more chunks.
func Intersects(a, b KeyExpr) bool {
	if a.scope != b.scope {
		return false
	}
	return intersectChunks(strings.Split(a.suffix, "/"), strings.Split(b.suffix, "/"))
}

// Intersects reports whether k and other denote overlapping key sets.
func (k KeyExpr) Intersects(other KeyExpr) bool {
	return Intersects(k, other)
}

// intersectChunks decides pattern/pattern intersection over path chunks,
// backtracking over `**` expansions.
func intersectChunks(a, b []string) bool {
	switch {
	case len(a) == 0 && len(b) == 0:
		return true
	case len(a) > 0 && a[0] == "**":
		if intersectChunks(a[1:], b) {
			return true
		}
		return len(b) > 0 && intersectChunks(a, b[1:])
	case len(b) > 0 && b[0] == "**":
		return intersectChunks(b, a)
	case len(a) == 0 || len(b) == 0:
		return false
	case a[0] == "*" || b[0] == "*" || a[0] == b[0]:
		return intersectChunks(a[1:], b[1:])
	default:
		return false
	}
}
