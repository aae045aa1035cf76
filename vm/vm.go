package vm

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/tliron/commonlog"

	"github.com/chazu/cmrt/mir"
)

// ---------------------------------------------------------------------------
// Machine: runs a lowered program
// ---------------------------------------------------------------------------

// Host is the line-output sink the println builtin writes to.
type Host interface {
	Println(line string)
}

// WriterHost is a Host writing lines to W.
type WriterHost struct {
	W io.Writer
}

func (h WriterHost) Println(line string) {
	fmt.Fprintln(h.W, line)
}

// Config holds machine options.
type Config struct {
	// Host receives println output. Defaults to stdout.
	Host Host

	// SimplifyCFG threads forwarding chains before the program runs.
	SimplifyCFG bool

	// Profile counts function invocations and block visits.
	Profile bool

	// MaxFrameDepth bounds nested calls. Zero means DefaultMaxFrameDepth.
	MaxFrameDepth int

	// NoValidate skips load-time validation. Malformed block tables are
	// then reported as faults when execution reaches them.
	NoValidate bool
}

// DefaultMaxFrameDepth is the call depth at which a Machine faults.
const DefaultMaxFrameDepth = 4096

// DefaultConfig returns the configuration used when New gets nil.
func DefaultConfig() *Config {
	return &Config{
		Host:    WriterHost{W: os.Stdout},
		Profile: os.Getenv("CMRT_PROFILE") != "",
	}
}

// Machine executes the functions of one program. A Machine runs a single
// activation tree at a time; it must not be called concurrently.
type Machine struct {
	prog     *mir.Program
	funcs    map[string]*mir.Function
	structs  map[string]*mir.StructDef
	tables   map[string]*MethodTable
	builtins map[string]Builtin

	arena    *Arena
	host     Host
	profiler *Profiler
	log      commonlog.Logger

	busy     atomic.Bool
	depth    int
	maxDepth int
}

// New prepares prog for execution: generic instantiations are resolved,
// the program is validated, forwarding chains are optionally threaded and
// method tables are built once for every vtable.
func New(prog *mir.Program, cfg *Config) (*Machine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	m := &Machine{
		prog:     prog,
		funcs:    make(map[string]*mir.Function, len(prog.Functions)),
		structs:  make(map[string]*mir.StructDef, len(prog.Structs)),
		tables:   make(map[string]*MethodTable, len(prog.VTables)),
		builtins: defaultBuiltins(),
		arena:    NewArena(),
		host:     cfg.Host,
		log:      commonlog.GetLogger("cmrt.vm"),
		maxDepth: cfg.MaxFrameDepth,
	}
	if m.maxDepth <= 0 {
		m.maxDepth = DefaultMaxFrameDepth
	}
	if m.host == nil {
		m.host = WriterHost{W: os.Stdout}
	}
	if cfg.Profile {
		m.profiler = NewProfiler()
	}

	if len(prog.GenericFuncs)+len(prog.GenericStructs) > 0 {
		in := mir.NewInstantiator(prog)
		if err := in.Resolve(); err != nil {
			return nil, fmt.Errorf("vm: instantiate %s: %w", prog.Name, err)
		}
		m.log.Infof("%s: %d generic instantiations", prog.Name, in.Instances())
	}
	if !cfg.NoValidate {
		if err := prog.Validate(); err != nil {
			return nil, fmt.Errorf("vm: load %s: %w", prog.Name, err)
		}
	}

	for _, fn := range prog.Functions {
		if cfg.SimplifyCFG {
			if n := mir.SimplifyCFG(fn); n > 0 {
				m.log.Debugf("%s: retargeted %d edges", fn.Name, n)
			}
		}
		if dead := mir.DeadBlocks(fn); len(dead) > 0 {
			m.log.Debugf("%s: dead blocks %v", fn.Name, dead)
		}
		m.funcs[fn.Name] = fn
	}
	for _, s := range prog.Structs {
		m.structs[s.Name] = s
	}
	for _, vt := range prog.VTables {
		methods := make(map[string]Func, len(vt.Entries))
		for _, e := range vt.Entries {
			methods[e.Method] = m.funcRef(e.Func)
		}
		m.tables[vt.Name] = NewMethodTable(vt.Name, vt.Type, methods)
	}

	m.log.Infof("loaded %s: %d functions, %d structs, %d vtables",
		prog.Name, len(m.funcs), len(m.structs), len(m.tables))
	return m, nil
}

// Program returns the loaded program.
func (m *Machine) Program() *mir.Program { return m.prog }

// Arena returns the slot arena backing Boxes.
func (m *Machine) Arena() *Arena { return m.arena }

// Profiler returns the profiler, or nil when profiling is off.
func (m *Machine) Profiler() *Profiler { return m.profiler }

// Table returns the method table built for the named vtable.
func (m *Machine) Table(name string) (*MethodTable, bool) {
	t, ok := m.tables[name]
	return t, ok
}

// RegisterBuiltin installs or replaces a host function callable by name.
// Program functions shadow builtins of the same name.
func (m *Machine) RegisterBuiltin(name string, fn Builtin) {
	m.builtins[name] = fn
}

// Call runs the named function to completion. Arguments are cloned on
// entry. A fault raised anywhere in the activation tree is returned as a
// *Fault; other panics propagate.
func (m *Machine) Call(name string, args ...Value) (result Value, err error) {
	if !m.busy.CompareAndSwap(false, true) {
		return Null(), ErrBusy
	}
	defer m.busy.Store(false)

	fn, ok := m.funcs[name]
	if !ok {
		return Null(), fmt.Errorf("vm: %s: %w", name, ErrUnknownFunction)
	}

	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(*Fault)
			if !ok {
				panic(r)
			}
			m.depth = 0
			m.log.Errorf("%s", f)
			result, err = Null(), f
		}
	}()

	in := make([]Value, len(args))
	for i, a := range args {
		in[i] = Clone(a)
	}
	return m.invoke(fn, in), nil
}

// Run calls the program entry point, "main" when unset.
func (m *Machine) Run() (Value, error) {
	entry := m.prog.Entry
	if entry == "" {
		entry = "main"
	}
	return m.Call(entry)
}

// funcRef adapts a program function to a method table entry.
func (m *Machine) funcRef(name string) Func {
	return func(args []Value) Value {
		fn, ok := m.funcs[name]
		if !ok {
			raise(ErrUnknownFunction, "%s", name)
		}
		return m.invoke(fn, args)
	}
}
