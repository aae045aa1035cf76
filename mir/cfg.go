package mir

// Predecessors returns, for every block, the blocks that may jump to it.
func Predecessors(fn *Function) [][]BlockID {
	preds := make([][]BlockID, len(fn.Blocks))
	for _, b := range fn.Blocks {
		if b == nil {
			continue
		}
		for _, s := range b.Term.Successors() {
			if fn.Block(s) != nil {
				preds[s] = append(preds[s], b.ID)
			}
		}
	}
	return preds
}

// Reachable marks the blocks reachable from the entry block.
func Reachable(fn *Function) []bool {
	seen := make([]bool, len(fn.Blocks))
	if fn.Block(EntryBlock) == nil {
		return seen
	}
	work := []BlockID{EntryBlock}
	seen[EntryBlock] = true
	for len(work) > 0 {
		id := work[len(work)-1]
		work = work[:len(work)-1]
		for _, s := range fn.Blocks[id].Term.Successors() {
			if fn.Block(s) == nil || seen[s] {
				continue
			}
			seen[s] = true
			work = append(work, s)
		}
	}
	return seen
}

// DeadBlocks lists blocks never reached from the entry.
func DeadBlocks(fn *Function) []BlockID {
	var dead []BlockID
	for i, ok := range Reachable(fn) {
		if !ok {
			dead = append(dead, BlockID(i))
		}
	}
	return dead
}

// forwardTarget follows a chain of forwarding blocks starting at id and
// returns the first block that does real work. Cycles made only of
// forwarding blocks are left alone.
func forwardTarget(fn *Function, id BlockID) BlockID {
	seen := map[BlockID]bool{}
	cur := id
	for {
		b := fn.Block(cur)
		if b == nil || !b.IsForwarding() {
			return cur
		}
		if seen[cur] {
			return id
		}
		seen[cur] = true
		cur = b.Term.Target
	}
}

// SimplifyCFG retargets every jump that lands on a forwarding block to the
// block the chain ends at. Block ids are preserved; bypassed forwarding
// blocks simply become dead. It returns the number of edges rewritten.
func SimplifyCFG(fn *Function) int {
	changed := 0
	retarget := func(t *BlockID) {
		if nt := forwardTarget(fn, *t); nt != *t {
			*t = nt
			changed++
		}
	}
	for _, b := range fn.Blocks {
		if b == nil {
			continue
		}
		t := &b.Term
		switch t.Kind {
		case TermGoto, TermCall:
			if t.Kind == TermGoto && forwardTarget(fn, b.ID) == b.ID && b.IsForwarding() {
				// a forwarding block inside a pure forwarding cycle
				continue
			}
			retarget(&t.Target)
		case TermBranch:
			retarget(&t.Then)
			retarget(&t.Else)
		case TermSwitch:
			for i := range t.Cases {
				retarget(&t.Cases[i].Target)
			}
			retarget(&t.Otherwise)
		}
	}
	return changed
}
