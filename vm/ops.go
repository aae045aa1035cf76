package vm

import (
	"math"
	"reflect"
)

// Clone returns a structurally identical value sharing no mutable storage
// with v. Primitives are returned as is. Boxes are copied as handles, so
// a clone still refers to the same slots; that is what keeps pointer
// semantics intact when the struct holding a pointer is copied.
func Clone(v Value) Value {
	switch v.kind {
	case KindStruct:
		src := v.st
		dst := &Struct{Type: src.Type, fields: make([]StructField, len(src.fields))}
		for i, f := range src.fields {
			dst.fields[i] = StructField{Name: f.Name, Value: Clone(f.Value)}
		}
		return StructVal(dst)
	case KindArray:
		elems := make([]Value, len(v.arr.elems))
		for i, e := range v.arr.elems {
			elems[i] = Clone(e)
		}
		return ArrayVal(&Array{elems: elems})
	case KindInterface:
		return Value{kind: KindInterface, iface: &Interface{payload: Clone(v.iface.payload), table: v.iface.table}}
	default:
		return v
	}
}

// DeepEqual reports structural equality. Ints and floats are different
// kinds and never compare equal; NaN equals NaN so that the relation is
// reflexive. Structs compare by member names and values, ignoring the
// declared type name. Handles compare by identity.
func DeepEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool, KindInt, KindBox:
		return a.num == b.num
	case KindFloat:
		return a.flt == b.flt || (math.IsNaN(a.flt) && math.IsNaN(b.flt))
	case KindString:
		return a.str == b.str
	case KindArray:
		if a.arr == b.arr {
			return true
		}
		if len(a.arr.elems) != len(b.arr.elems) {
			return false
		}
		for i := range a.arr.elems {
			if !DeepEqual(a.arr.elems[i], b.arr.elems[i]) {
				return false
			}
		}
		return true
	case KindStruct:
		if a.st == b.st {
			return true
		}
		if len(a.st.fields) != len(b.st.fields) {
			return false
		}
		for _, f := range a.st.fields {
			other, ok := b.st.Get(f.Name)
			if !ok || !DeepEqual(f.Value, other) {
				return false
			}
		}
		return true
	case KindInterface:
		return a.iface.table == b.iface.table && DeepEqual(a.iface.payload, b.iface.payload)
	case KindHandle:
		return sameHandle(a.host, b.host)
	}
	return false
}

func sameHandle(a, b any) bool {
	if a == nil || b == nil {
		return a == b
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	switch ta.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func:
		return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
	}
	return false
}
