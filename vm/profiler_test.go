package vm

import (
	"sync"
	"testing"

	"github.com/chazu/cmrt/mir"
)

func twoBlockFn(name string) *mir.Function {
	b := mir.NewFunctionBuilder(name, mir.Unit)
	bb0, bb1 := b.NewBlock(), b.NewBlock()
	b.Terminate(bb0, mir.Goto(bb1))
	b.Terminate(bb1, mir.ReturnVoid())
	return b.Build()
}

func TestProfilerCallThreshold(t *testing.T) {
	p := NewProfiler()
	p.FuncHotThreshold = 5
	fn := twoBlockFn("f")

	if p.RecordCall(fn) {
		t.Error("function should not be hot after 1 call")
	}
	var becameHot bool
	for i := 0; i < 4; i++ {
		becameHot = p.RecordCall(fn)
	}
	if !becameHot {
		t.Error("function should become hot at threshold")
	}
	if p.RecordCall(fn) {
		t.Error("function should not re-trigger hot")
	}
	if got := p.Profile("f").Calls; got != 6 {
		t.Errorf("calls = %d, want 6", got)
	}
}

func TestProfilerBlockThreshold(t *testing.T) {
	p := NewProfiler()
	p.BlockHotThreshold = 3
	fn := twoBlockFn("f")

	var hot []mir.BlockID
	p.OnHotBlock = func(name string, id mir.BlockID) {
		if name != "f" {
			t.Errorf("OnHotBlock name = %s", name)
		}
		hot = append(hot, id)
	}

	for i := 0; i < 5; i++ {
		p.RecordBlock(fn, 1)
	}
	p.RecordBlock(fn, 0)
	p.RecordBlock(fn, 7)

	if len(hot) != 1 || hot[0] != 1 {
		t.Errorf("hot blocks = %v, want [1]", hot)
	}
	if got := p.Stats().HotBlocks; got != 1 {
		t.Errorf("Stats().HotBlocks = %d, want 1", got)
	}
}

func TestProfilerStats(t *testing.T) {
	p := NewProfiler()
	p.FuncHotThreshold = 2
	f, g := twoBlockFn("f"), twoBlockFn("g")

	p.RecordCall(f)
	p.RecordCall(f)
	p.RecordCall(g)
	p.RecordBlock(f, 0)
	p.RecordBlock(g, 1)

	stats := p.Stats()
	if stats.Functions != 2 {
		t.Errorf("Functions = %d, want 2", stats.Functions)
	}
	if stats.HotFuncs != 1 {
		t.Errorf("HotFuncs = %d, want 1", stats.HotFuncs)
	}
	if stats.Calls != 3 {
		t.Errorf("Calls = %d, want 3", stats.Calls)
	}
	if stats.BlockVisits != 2 {
		t.Errorf("BlockVisits = %d, want 2", stats.BlockVisits)
	}

	top := p.TopFunctions(1)
	if len(top) != 1 || top[0].Name != "f" {
		t.Errorf("TopFunctions(1) = %v", top)
	}

	p.Reset()
	if p.Stats().Functions != 0 {
		t.Error("Reset should clear profiles")
	}
}

func TestProfilerConcurrentRecording(t *testing.T) {
	p := NewProfiler()
	fn := twoBlockFn("f")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.RecordCall(fn)
				p.RecordBlock(fn, 0)
			}
		}()
	}
	wg.Wait()

	stats := p.Stats()
	if stats.Calls != 800 || stats.BlockVisits != 800 {
		t.Errorf("stats = %+v, want 800 calls and visits", stats)
	}
}
