package mir

// FunctionBuilder assembles a Function block by block. Blocks are created
// with NewBlock and receive dense ids in creation order, so the first
// block created is the entry block.
type FunctionBuilder struct {
	fn *Function
}

// NewFunctionBuilder starts a function returning ret.
func NewFunctionBuilder(name string, ret *Type) *FunctionBuilder {
	return &FunctionBuilder{fn: &Function{Name: name, Returns: ret}}
}

// Param declares a parameter local.
func (b *FunctionBuilder) Param(name string, t *Type) LocalID {
	id := b.Local(name, t)
	b.fn.Params = append(b.fn.Params, id)
	return id
}

// Local declares a local slot.
func (b *FunctionBuilder) Local(name string, t *Type) LocalID {
	id := LocalID(len(b.fn.Locals))
	b.fn.Locals = append(b.fn.Locals, Local{Name: name, Type: t})
	return id
}

// AddressableLocal declares a local whose address is taken.
func (b *FunctionBuilder) AddressableLocal(name string, t *Type) LocalID {
	id := b.Local(name, t)
	b.fn.Locals[id].Addressable = true
	return id
}

// TypeParams marks the function as a generic template.
func (b *FunctionBuilder) TypeParams(names ...string) *FunctionBuilder {
	b.fn.TypeParams = append(b.fn.TypeParams, names...)
	return b
}

// NewBlock appends an empty block terminated by Unreachable.
func (b *FunctionBuilder) NewBlock() BlockID {
	id := BlockID(len(b.fn.Blocks))
	b.fn.Blocks = append(b.fn.Blocks, &Block{ID: id, Term: Unreachable()})
	return id
}

// Emit appends statements to block id.
func (b *FunctionBuilder) Emit(id BlockID, stmts ...Stmt) {
	blk := b.fn.Blocks[id]
	blk.Stmts = append(blk.Stmts, stmts...)
}

// Assign appends p = rv to block id.
func (b *FunctionBuilder) Assign(id BlockID, p Place, rv Rvalue) {
	b.Emit(id, Assign(p, rv))
}

// Terminate sets the terminator of block id.
func (b *FunctionBuilder) Terminate(id BlockID, t Terminator) {
	b.fn.Blocks[id].Term = t
}

// Build returns the finished function.
func (b *FunctionBuilder) Build() *Function {
	return b.fn
}
