package mir

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrSyntax is returned for malformed shorthand in program sources.
var ErrSyntax = errors.New("syntax error")

// ParseType reads the shorthand notation for a type:
//
//	int float bool string unit handle
//	Name             struct
//	Name<int, T>     generic struct reference
//	iface Name       interface
//	'T               type parameter
//	T[]  T[4]  T*    slice, fixed array, pointer
func ParseType(s string) (*Type, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty type: %w", ErrSyntax)
	}
	switch {
	case strings.HasSuffix(s, "[]"):
		elem, err := ParseType(s[:len(s)-2])
		if err != nil {
			return nil, err
		}
		return SliceOf(elem), nil
	case strings.HasSuffix(s, "]"):
		open := strings.LastIndexByte(s, '[')
		if open < 0 {
			return nil, fmt.Errorf("type %q: %w", s, ErrSyntax)
		}
		n, err := strconv.Atoi(s[open+1 : len(s)-1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("type %q: bad length: %w", s, ErrSyntax)
		}
		elem, err := ParseType(s[:open])
		if err != nil {
			return nil, err
		}
		return ArrayOf(elem, n), nil
	case strings.HasSuffix(s, "*"):
		elem, err := ParseType(s[:len(s)-1])
		if err != nil {
			return nil, err
		}
		return PtrTo(elem), nil
	case strings.HasSuffix(s, ">"):
		open := strings.IndexByte(s, '<')
		if open <= 0 {
			return nil, fmt.Errorf("type %q: %w", s, ErrSyntax)
		}
		var args []*Type
		for _, part := range splitTopLevel(s[open+1 : len(s)-1]) {
			a, err := ParseType(part)
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return StructOf(strings.TrimSpace(s[:open]), args...), nil
	case strings.HasPrefix(s, "iface "):
		return InterfaceOf(strings.TrimSpace(s[len("iface "):])), nil
	case strings.HasPrefix(s, "'"):
		return Param(s[1:]), nil
	}
	switch TypeKind(s) {
	case TypeInt, TypeFloat, TypeBool, TypeString, TypeUnit, TypeHandle:
		return &Type{Kind: TypeKind(s)}, nil
	}
	return StructOf(s), nil
}

// splitTopLevel splits on commas outside angle brackets.
func splitTopLevel(s string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range s {
		switch c {
		case '<':
			depth++
		case '>':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// ParsePlace reads the shorthand notation for a place: a local "_N"
// followed by ".field", "[k]" (k an integer or a local) and ".*" (deref)
// steps, e.g. "_2.pos[_3].*".
func ParsePlace(s string) (Place, error) {
	s = strings.TrimSpace(s)
	if !isLocalRef(s) {
		return Place{}, fmt.Errorf("place %q: %w", s, ErrSyntax)
	}
	end := 1
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	id, _ := strconv.Atoi(s[1:end])
	p := LocalPlace(LocalID(id))

	rest := s[end:]
	for rest != "" {
		switch {
		case strings.HasPrefix(rest, ".*"):
			p = p.Deref()
			rest = rest[2:]
		case rest[0] == '.':
			j := 1
			for j < len(rest) && rest[j] != '.' && rest[j] != '[' {
				j++
			}
			if j == 1 {
				return Place{}, fmt.Errorf("place %q: empty field: %w", s, ErrSyntax)
			}
			p = p.Field(rest[1:j])
			rest = rest[j:]
		case rest[0] == '[':
			j := strings.IndexByte(rest, ']')
			if j < 0 {
				return Place{}, fmt.Errorf("place %q: unclosed index: %w", s, ErrSyntax)
			}
			idx, err := parseIndex(rest[1:j])
			if err != nil {
				return Place{}, fmt.Errorf("place %q: %w", s, err)
			}
			p = p.Index(idx)
			rest = rest[j+1:]
		default:
			return Place{}, fmt.Errorf("place %q: unexpected %q: %w", s, rest, ErrSyntax)
		}
	}
	return p, nil
}

func parseIndex(s string) (Operand, error) {
	s = strings.TrimSpace(s)
	if isLocalRef(s) {
		p, err := ParsePlace(s)
		if err != nil {
			return Operand{}, err
		}
		return Copy(p), nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Operand{}, fmt.Errorf("index %q: %w", s, ErrSyntax)
	}
	return IntConst(n), nil
}

func isLocalRef(s string) bool {
	return len(s) >= 2 && s[0] == '_' && s[1] >= '0' && s[1] <= '9'
}

// ---------------------------------------------------------------------------
// YAML shorthand
// ---------------------------------------------------------------------------

// UnmarshalYAML accepts either the mapping form or ParseType shorthand.
func (t *Type) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		type plain Type
		return n.Decode((*plain)(t))
	}
	pt, err := ParseType(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*t = *pt
	return nil
}

// UnmarshalYAML accepts either the mapping form or ParsePlace shorthand.
func (p *Place) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		type plain Place
		return n.Decode((*plain)(p))
	}
	pl, err := ParsePlace(n.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", n.Line, err)
	}
	*p = pl
	return nil
}

// UnmarshalYAML accepts the mapping form or a scalar: a place ("_3.x")
// reads by copy, "move _3" reads by move, and any other scalar is a
// constant of its YAML type. Quote a string constant that would
// otherwise read as a place.
func (o *Operand) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		type plain Operand
		return n.Decode((*plain)(o))
	}
	v := n.Value
	switch n.ShortTag() {
	case "!!int":
		i, err := strconv.ParseInt(v, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*o = IntConst(i)
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		*o = FloatConst(f)
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		*o = BoolConst(b)
	case "!!null":
		*o = NullConst()
	default:
		switch {
		case n.Style == 0 && strings.HasPrefix(v, "move "):
			p, err := ParsePlace(v[len("move "):])
			if err != nil {
				return fmt.Errorf("line %d: %w", n.Line, err)
			}
			*o = Move(p)
		case n.Style == 0 && isLocalRef(v):
			p, err := ParsePlace(v)
			if err != nil {
				return fmt.Errorf("line %d: %w", n.Line, err)
			}
			*o = Copy(p)
		default:
			*o = StrConst(v)
		}
	}
	return nil
}

// UnmarshalYAML decodes each element of a sequence as an Operand.
func (ops *Operands) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: operand list: %w", n.Line, ErrSyntax)
	}
	out := make(Operands, len(n.Content))
	for i, c := range n.Content {
		var err error
		if c.Kind == yaml.ScalarNode {
			err = out[i].UnmarshalYAML(c)
		} else {
			err = c.Decode(&out[i])
		}
		if err != nil {
			return err
		}
	}
	*ops = out
	return nil
}
