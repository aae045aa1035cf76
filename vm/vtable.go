package vm

import "sort"

// Func is a method implementation. The receiver is passed explicitly as
// args[0]; there is no implicit binding.
type Func func(args []Value) Value

// MethodTable maps method names to implementations for one concrete type
// implementing one interface. It is immutable once built.
type MethodTable struct {
	name    string
	typ     string
	methods map[string]Func
}

// NewMethodTable builds a table from methods. The map is copied.
func NewMethodTable(name, typ string, methods map[string]Func) *MethodTable {
	m := make(map[string]Func, len(methods))
	for k, f := range methods {
		m[k] = f
	}
	return &MethodTable{name: name, typ: typ, methods: m}
}

// Name returns the table name, e.g. "Point_Printable_vtable".
func (mt *MethodTable) Name() string { return mt.name }

// Type returns the concrete type the table was built for.
func (mt *MethodTable) Type() string { return mt.typ }

// Lookup finds a method by name.
func (mt *MethodTable) Lookup(name string) (Func, bool) {
	f, ok := mt.methods[name]
	return f, ok
}

// Methods returns the method names in sorted order.
func (mt *MethodTable) Methods() []string {
	names := make([]string, 0, len(mt.methods))
	for k := range mt.methods {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Interface is a fat value: a payload bundled with the method table
// selected for the payload's concrete type. Neither half can be replaced.
type Interface struct {
	payload Value
	table   *MethodTable
}

// Payload returns the bound concrete value.
func (i *Interface) Payload() Value { return i.payload }

// Table returns the bound method table.
func (i *Interface) Table() *MethodTable { return i.table }

// NewInterface converts a concrete value to an interface value. The
// payload is cloned at the conversion point, so later writes to the
// source do not reach the interface; a Box payload is copied as a handle
// and keeps aliasing its slot.
func NewInterface(payload Value, table *MethodTable) Value {
	return Value{kind: KindInterface, iface: &Interface{payload: Clone(payload), table: table}}
}

// CallMethod invokes method name of the interface value iv with the
// payload as the explicit receiver followed by args. A missing method is
// a fatal fault.
func CallMethod(iv Value, name string, args ...Value) Value {
	if iv.kind != KindInterface {
		raise(ErrTypeMismatch, "method %s called on %s", name, iv.kind)
	}
	f, ok := iv.iface.table.Lookup(name)
	if !ok {
		raise(ErrMissingMethod, "%s.%s", iv.iface.table.name, name)
	}
	full := make([]Value, 0, len(args)+1)
	full = append(full, iv.iface.payload)
	full = append(full, args...)
	return f(full)
}
