package vm

import "strings"

// Builtin is a host function callable from a program by name.
type Builtin func(m *Machine, args []Value) Value

func defaultBuiltins() map[string]Builtin {
	return map[string]Builtin{
		"println":    builtinPrintln,
		"len":        builtinLen,
		"push":       builtinPush,
		"array_init": builtinArrayInit,
		"str_concat": builtinStrConcat,
		"to_string":  builtinToString,
	}
}

// println writes its arguments, space separated, as one line.
func builtinPrintln(m *Machine, args []Value) Value {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = ToString(a)
	}
	m.host.Println(strings.Join(parts, " "))
	return Null()
}

func builtinLen(_ *Machine, args []Value) Value {
	wantArgs("len", args, 1)
	return Int(int64(length(args[0])))
}

// push appends to a dynamic array in place. The array must be passed by
// move for the caller's local to observe the append.
func builtinPush(_ *Machine, args []Value) Value {
	wantArgs("push", args, 2)
	if args[0].kind != KindArray {
		raise(ErrTypeMismatch, "push to %s", args[0].kind)
	}
	args[0].arr.Push(args[1])
	return Null()
}

// array_init(size, fill) builds an array of size independent copies of
// fill.
func builtinArrayInit(_ *Machine, args []Value) Value {
	wantArgs("array_init", args, 2)
	n := int(args[0].AsInt())
	if n < 0 {
		n = 0
	}
	elems := make([]Value, n)
	for i := range elems {
		elems[i] = Clone(args[1])
	}
	return ArrayVal(NewArray(elems...))
}

func builtinStrConcat(_ *Machine, args []Value) Value {
	var sb strings.Builder
	for _, a := range args {
		sb.WriteString(ToString(a))
	}
	return Str(sb.String())
}

func builtinToString(_ *Machine, args []Value) Value {
	wantArgs("to_string", args, 1)
	return Str(ToString(args[0]))
}

func wantArgs(name string, args []Value, n int) {
	if len(args) != n {
		raise(ErrArity, "%s wants %d, got %d", name, n, len(args))
	}
}
