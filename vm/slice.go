package vm

// Bound is an optional slice end. The zero value is Open.
type Bound struct {
	n   int
	set bool
}

// Open means "to the end of the sequence".
var Open = Bound{}

// End returns an explicit bound.
func End(n int) Bound {
	return Bound{n: n, set: true}
}

// IsSet reports whether the bound was given explicitly.
func (b Bound) IsSet() bool { return b.set }

// Value returns the explicit bound.
func (b Bound) Value() int { return b.n }

// Slice returns a new array holding elements [start, end) of a. A
// negative start or end counts back from the length; the adjusted range
// is then clamped to the array, so an over-negative start behaves as 0
// and an inverted range yields an empty array. Elements are copied
// shallowly: callers that read a through a copy operand already hold a
// private clone.
func Slice(a *Array, start int, end Bound) *Array {
	n := a.Len()
	if start < 0 {
		start += n
	}
	e := n
	if end.set {
		e = end.n
		if e < 0 {
			e += n
		}
	}
	return &Array{elems: rangeCopy(a.elems, start, e)}
}

// StrSlice returns code points [start, end) of s. A negative start
// counts back from the length. A negative end is inclusive of the
// position it names: -1 keeps the last code point, so
// StrSlice("Hello, World!", 7, End(-1)) == "World!". An inverted range
// yields "".
func StrSlice(s string, start int, end Bound) string {
	r := []rune(s)
	n := len(r)
	if start < 0 {
		start += n
		if start < 0 {
			start = 0
		}
	}
	e := n
	if end.set {
		e = end.n
		if e < 0 {
			e = n + e + 1
		}
	}
	start, e = clamp(start, n), clamp(e, n)
	if start >= e {
		return ""
	}
	return string(r[start:e])
}

// rangeCopy copies elems[start:end] after clamping both ends to the
// slice.
func rangeCopy(elems []Value, start, end int) []Value {
	start, end = clamp(start, len(elems)), clamp(end, len(elems))
	if start >= end {
		return []Value{}
	}
	out := make([]Value, end-start)
	copy(out, elems[start:end])
	return out
}

func clamp(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
