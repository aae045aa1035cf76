package vm

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chazu/cmrt/mir"
)

// Profiler counts function invocations and block visits. A function
// becomes hot once its call count reaches FuncHotThreshold; a block once
// its visit count reaches BlockHotThreshold. Hot blocks are usually loop
// headers.

// FunctionProfile holds the counters of one function.
type FunctionProfile struct {
	Name   string
	Calls  uint64   // atomic
	Blocks []uint64 // atomic, indexed by block id
	hot    atomic.Bool
}

// IsHot reports whether the function reached the call threshold.
func (fp *FunctionProfile) IsHot() bool { return fp.hot.Load() }

// Profiler manages profiles for every function a Machine runs.
type Profiler struct {
	profiles sync.Map // function name -> *FunctionProfile

	FuncHotThreshold  uint64 // Default: 100
	BlockHotThreshold uint64 // Default: 500

	// OnHotBlock is called once per block when it becomes hot.
	OnHotBlock func(fn string, block mir.BlockID)

	hotBlocks uint64
}

// NewProfiler creates a profiler with default thresholds.
func NewProfiler() *Profiler {
	return &Profiler{
		FuncHotThreshold:  100,
		BlockHotThreshold: 500,
	}
}

func (p *Profiler) profile(fn *mir.Function) *FunctionProfile {
	val, _ := p.profiles.LoadOrStore(fn.Name, &FunctionProfile{
		Name:   fn.Name,
		Blocks: make([]uint64, len(fn.Blocks)),
	})
	return val.(*FunctionProfile)
}

// RecordCall increments the call count of fn. It returns true when this
// call made fn hot.
func (p *Profiler) RecordCall(fn *mir.Function) bool {
	prof := p.profile(fn)
	count := atomic.AddUint64(&prof.Calls, 1)
	return count >= p.FuncHotThreshold && prof.hot.CompareAndSwap(false, true)
}

// RecordBlock increments the visit count of block id of fn. It returns
// true when this visit made the block hot.
func (p *Profiler) RecordBlock(fn *mir.Function, id mir.BlockID) bool {
	prof := p.profile(fn)
	if id < 0 || int(id) >= len(prof.Blocks) {
		return false
	}
	count := atomic.AddUint64(&prof.Blocks[id], 1)
	if count == p.BlockHotThreshold {
		atomic.AddUint64(&p.hotBlocks, 1)
		if p.OnHotBlock != nil {
			p.OnHotBlock(fn.Name, id)
		}
		return true
	}
	return false
}

// Profile returns the profile of the named function, or nil.
func (p *Profiler) Profile(name string) *FunctionProfile {
	if val, ok := p.profiles.Load(name); ok {
		return val.(*FunctionProfile)
	}
	return nil
}

// ProfilerStats holds aggregate profiling statistics.
type ProfilerStats struct {
	Functions   int
	HotFuncs    int
	HotBlocks   int
	Calls       uint64
	BlockVisits uint64
}

// Stats returns aggregate profiling statistics.
func (p *Profiler) Stats() ProfilerStats {
	stats := ProfilerStats{HotBlocks: int(atomic.LoadUint64(&p.hotBlocks))}
	p.profiles.Range(func(_, value any) bool {
		prof := value.(*FunctionProfile)
		stats.Functions++
		stats.Calls += atomic.LoadUint64(&prof.Calls)
		for i := range prof.Blocks {
			stats.BlockVisits += atomic.LoadUint64(&prof.Blocks[i])
		}
		if prof.IsHot() {
			stats.HotFuncs++
		}
		return true
	})
	return stats
}

// TopFunctions returns up to n profiles ordered by call count.
func (p *Profiler) TopFunctions(n int) []*FunctionProfile {
	var all []*FunctionProfile
	p.profiles.Range(func(_, value any) bool {
		all = append(all, value.(*FunctionProfile))
		return true
	})
	sort.Slice(all, func(i, j int) bool {
		ci, cj := atomic.LoadUint64(&all[i].Calls), atomic.LoadUint64(&all[j].Calls)
		if ci != cj {
			return ci > cj
		}
		return all[i].Name < all[j].Name
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// Reset clears all profiling data.
func (p *Profiler) Reset() {
	p.profiles = sync.Map{}
	atomic.StoreUint64(&p.hotBlocks, 0)
}
