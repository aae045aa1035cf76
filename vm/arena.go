package vm

import "strconv"

// Box is a handle to an Arena slot. Copying a Box shares the slot, which
// is how pointers to locals stay coherent with the local itself.
type Box int

func (b Box) String() string {
	return "&slot" + strconv.Itoa(int(b))
}

// Arena owns the slots behind Boxes. A frame releases its slots when it
// returns and Alloc reuses them. A slot whose Box may outlive the frame is
// pinned and stays allocated for the life of the arena.
type Arena struct {
	slots  []Value
	free   []Box
	pinned map[Box]struct{}
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// Alloc stores v in a free slot, or a fresh one, and returns its Box.
func (a *Arena) Alloc(v Value) Box {
	if n := len(a.free); n > 0 {
		b := a.free[n-1]
		a.free = a.free[:n-1]
		a.slots[b] = v
		return b
	}
	a.slots = append(a.slots, v)
	return Box(len(a.slots) - 1)
}

// Load returns the value held in b's slot.
func (a *Arena) Load(b Box) Value {
	if b < 0 || int(b) >= len(a.slots) {
		raise(ErrDanglingBox, "%s", b)
	}
	return a.slots[b]
}

// Store replaces the value held in b's slot.
func (a *Arena) Store(b Box, v Value) {
	if b < 0 || int(b) >= len(a.slots) {
		raise(ErrDanglingBox, "%s", b)
	}
	a.slots[b] = v
}

// Pin marks every Box reachable from v as escaped.
func (a *Arena) Pin(v Value) {
	if a.Live() == 0 {
		return
	}
	eachBox(v, func(b Box) {
		if a.pinned == nil {
			a.pinned = make(map[Box]struct{})
		}
		a.pinned[b] = struct{}{}
	})
}

// Release puts b's slot back on the free list unless it is pinned.
func (a *Arena) Release(b Box) {
	if b < 0 || int(b) >= len(a.slots) {
		return
	}
	if _, ok := a.pinned[b]; ok {
		return
	}
	a.slots[b] = Null()
	a.free = append(a.free, b)
}

// Len returns the number of slots, free or in use.
func (a *Arena) Len() int {
	return len(a.slots)
}

// Live returns the number of slots in use.
func (a *Arena) Live() int {
	return len(a.slots) - len(a.free)
}

// eachBox calls fn for every Box held in v, looking inside aggregates and
// interface payloads but not through the Boxes themselves.
func eachBox(v Value, fn func(Box)) {
	switch v.kind {
	case KindBox:
		fn(v.Box())
	case KindStruct:
		if v.st == nil {
			return
		}
		for _, f := range v.st.Fields() {
			eachBox(f.Value, fn)
		}
	case KindArray:
		if v.arr == nil {
			return
		}
		for _, e := range v.arr.Elems() {
			eachBox(e, fn)
		}
	case KindInterface:
		if v.iface == nil {
			return
		}
		eachBox(v.iface.payload, fn)
	}
}
