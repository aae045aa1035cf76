package vm

import (
	"math"
	"strconv"
	"strings"

	"github.com/chazu/cmrt/mir"
)

// binary applies a binary operator. Two ints stay ints (wrapping on
// overflow); an int mixed with a float is promoted. "+" with a string
// operand concatenates default stringifications.
func binary(op mir.BinOp, a, b Value) Value {
	switch op {
	case mir.BinEq:
		return Bool(DeepEqual(a, b))
	case mir.BinNe:
		return Bool(!DeepEqual(a, b))
	case mir.BinAnd:
		return Bool(a.Truthy() && b.Truthy())
	case mir.BinOr:
		return Bool(a.Truthy() || b.Truthy())
	case mir.BinLt, mir.BinLe, mir.BinGt, mir.BinGe:
		return Bool(compare(op, a, b))
	case mir.BinAdd:
		if a.kind == KindString || b.kind == KindString {
			return Str(ToString(a) + ToString(b))
		}
	}

	if a.kind == KindInt && b.kind == KindInt {
		return intOp(op, a.num, b.num)
	}
	if !a.IsNumber() || !b.IsNumber() {
		raise(ErrTypeMismatch, "%s %s %s", a.kind, op, b.kind)
	}
	x, y := a.AsFloat(), b.AsFloat()
	switch op {
	case mir.BinAdd:
		return Float(x + y)
	case mir.BinSub:
		return Float(x - y)
	case mir.BinMul:
		return Float(x * y)
	case mir.BinDiv:
		return Float(x / y)
	case mir.BinMod:
		return Float(math.Mod(x, y))
	}
	raise(ErrTypeMismatch, "%s on float", op)
	return Null()
}

func intOp(op mir.BinOp, x, y int64) Value {
	switch op {
	case mir.BinAdd:
		return Int(x + y)
	case mir.BinSub:
		return Int(x - y)
	case mir.BinMul:
		return Int(x * y)
	case mir.BinDiv:
		if y == 0 {
			raise(ErrDivideByZero, "%d / 0", x)
		}
		return Int(x / y)
	case mir.BinMod:
		if y == 0 {
			raise(ErrDivideByZero, "%d %% 0", x)
		}
		return Int(x % y)
	case mir.BinBitAnd:
		return Int(x & y)
	case mir.BinBitOr:
		return Int(x | y)
	case mir.BinBitXor:
		return Int(x ^ y)
	case mir.BinShl:
		return Int(x << (uint64(y) & 63))
	case mir.BinShr:
		return Int(x >> (uint64(y) & 63))
	}
	raise(ErrMalformed, "binary operator %q", op)
	return Null()
}

func compare(op mir.BinOp, a, b Value) bool {
	var c int
	switch {
	case a.kind == KindInt && b.kind == KindInt:
		c = cmp3(a.num < b.num, a.num > b.num)
	case a.IsNumber() && b.IsNumber():
		x, y := a.AsFloat(), b.AsFloat()
		if math.IsNaN(x) || math.IsNaN(y) {
			return false
		}
		c = cmp3(x < y, x > y)
	case a.kind == KindString && b.kind == KindString:
		c = strings.Compare(a.str, b.str)
	default:
		raise(ErrTypeMismatch, "%s %s %s", a.kind, op, b.kind)
	}
	switch op {
	case mir.BinLt:
		return c < 0
	case mir.BinLe:
		return c <= 0
	case mir.BinGt:
		return c > 0
	default:
		return c >= 0
	}
}

func cmp3(lt, gt bool) int {
	switch {
	case lt:
		return -1
	case gt:
		return 1
	}
	return 0
}

func unary(op mir.UnOp, a Value) Value {
	switch op {
	case mir.UnNot:
		return Bool(!a.Truthy())
	case mir.UnNeg:
		switch a.kind {
		case KindInt:
			return Int(-a.num)
		case KindFloat:
			return Float(-a.flt)
		}
	case mir.UnBitNot:
		if a.kind == KindInt {
			return Int(^a.num)
		}
	default:
		raise(ErrMalformed, "unary operator %q", op)
	}
	raise(ErrTypeMismatch, "%s %s", op, a.kind)
	return Null()
}

// cast converts a primitive to the primitive type t. Unparseable strings
// convert to zero; casts to non-primitive types return v unchanged.
func cast(v Value, t *mir.Type) Value {
	if t == nil {
		return v
	}
	switch t.Kind {
	case mir.TypeInt:
		if v.kind == KindString {
			n, err := strconv.ParseInt(strings.TrimSpace(v.str), 10, 64)
			if err != nil {
				f, ferr := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
				if ferr != nil {
					return Int(0)
				}
				return Int(Float(f).AsInt())
			}
			return Int(n)
		}
		return Int(v.AsInt())
	case mir.TypeFloat:
		if v.kind == KindString {
			f, err := strconv.ParseFloat(strings.TrimSpace(v.str), 64)
			if err != nil {
				return Float(0)
			}
			return Float(f)
		}
		return Float(v.AsFloat())
	case mir.TypeBool:
		return Bool(v.Truthy())
	case mir.TypeString:
		return Str(ToString(v))
	}
	return v
}
