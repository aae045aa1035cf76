// cmrt runs lowered block-table programs.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/cmrt/manifest"
	"github.com/chazu/cmrt/mir"
	"github.com/chazu/cmrt/mir/dist"
	"github.com/chazu/cmrt/store"
	"github.com/chazu/cmrt/vm"
)

var log = commonlog.GetLogger("cmrt.cli")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	entry     string
	verbosity int
	disasm    bool
	simplify  bool
	profile   bool
	storePath string
	save      string
	load      string
	out       string
	allow     string
	configDir string
	list      bool
	path      string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("cmrt", flag.ContinueOnError)
	fs.SetOutput(stderr)

	o := &options{}
	fs.StringVar(&o.entry, "entry", "", "Entry function (default from cmrt.toml, else main)")
	fs.IntVar(&o.verbosity, "v", -1, "Log verbosity (default from cmrt.toml)")
	fs.BoolVar(&o.disasm, "disasm", false, "Print the block listing instead of running")
	fs.BoolVar(&o.simplify, "simplify", false, "Thread forwarding blocks before running")
	fs.BoolVar(&o.profile, "profile", false, "Print call and block counts after running")
	fs.StringVar(&o.storePath, "store", "", "Image store path (default from cmrt.toml)")
	fs.StringVar(&o.save, "save", "", "Save the program to the image store under NAME")
	fs.StringVar(&o.load, "load", "", "Load the program NAME from the image store")
	fs.StringVar(&o.out, "o", "", "Write the program to FILE (.yaml, .mir or .img) instead of running")
	fs.StringVar(&o.allow, "allow", "", "Comma-separated builtins the program may call")
	fs.StringVar(&o.configDir, "config", ".", "Directory to search upwards for cmrt.toml")
	fs.BoolVar(&o.list, "ls", false, "List the image store")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: cmrt [options] [prog.yaml|prog.mir|prog.img]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  cmrt prog.yaml                 # Run main\n")
		fmt.Fprintf(stderr, "  cmrt -disasm prog.yaml         # Print blocks\n")
		fmt.Fprintf(stderr, "  cmrt -o prog.img prog.yaml     # Pack an image\n")
		fmt.Fprintf(stderr, "  cmrt -save demo prog.yaml      # Store and run\n")
		fmt.Fprintf(stderr, "  cmrt -load demo -entry start   # Run a stored image\n")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	switch fs.NArg() {
	case 0:
	case 1:
		o.path = fs.Arg(0)
	default:
		return nil, fmt.Errorf("expected one program, got %d", fs.NArg())
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	m, err := manifest.FindAndLoad(o.configDir)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if m == nil {
		m = manifest.Default()
	}
	o.merge(m)

	var logFile *string
	if m.Log.File != "" {
		logFile = &m.Log.File
	}
	commonlog.Configure(o.verbosity, logFile)

	if err := execute(o, m, stdout, stderr); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// merge fills options left unset on the command line from the manifest.
func (o *options) merge(m *manifest.Manifest) {
	if o.entry == "" {
		o.entry = m.Program.Entry
	}
	if o.verbosity < 0 {
		o.verbosity = m.Log.Verbosity
	}
	if o.storePath == "" {
		o.storePath = m.StorePath()
	}
	if o.path == "" && o.load == "" {
		o.path = m.ImagePath()
	}
	if o.allow == "" && len(m.Runtime.Builtins) > 0 {
		o.allow = strings.Join(m.Runtime.Builtins, ",")
	}
	o.simplify = o.simplify || m.Runtime.SimplifyCFG
	o.profile = o.profile || m.Runtime.Profile
}

func (o *options) needsStore() bool {
	return o.list || o.save != "" || o.load != ""
}

func execute(o *options, m *manifest.Manifest, stdout, stderr io.Writer) error {
	var st *store.Store
	if o.needsStore() {
		var err error
		st, err = store.Open(o.storePath)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	if o.list {
		recs, err := st.List()
		if err != nil {
			return err
		}
		for _, r := range recs {
			fmt.Fprintf(stdout, "%-20s %s %6d %s\n", r.Name, r.Hash[:12], r.Size, r.CreatedAt.Format("2006-01-02 15:04:05"))
		}
		if o.path == "" && o.load == "" {
			return nil
		}
	}

	prog, img, err := o.loadProgram(st)
	if err != nil {
		return err
	}
	if o.allow != "" {
		if err := dist.NewRestrictedPolicy(strings.Split(o.allow, ",")).Check(img); err != nil {
			return err
		}
	}

	if o.save != "" {
		if _, err := st.Put(o.save, img); err != nil {
			return err
		}
	}
	if o.out != "" {
		if err := dist.SaveFile(o.out, prog); err != nil {
			return err
		}
		log.Infof("wrote %s", o.out)
		return nil
	}
	if o.disasm {
		if o.simplify {
			for _, fn := range prog.Functions {
				mir.SimplifyCFG(fn)
			}
		}
		fmt.Fprint(stdout, prog.Disassemble())
		return nil
	}

	machine, err := vm.New(prog, &vm.Config{
		Host:          vm.WriterHost{W: stdout},
		SimplifyCFG:   o.simplify,
		Profile:       o.profile,
		MaxFrameDepth: m.Runtime.MaxFrameDepth,
	})
	if err != nil {
		return err
	}
	var hot []string
	if p := machine.Profiler(); p != nil {
		if n := m.Runtime.HotBlockThreshold; n > 0 {
			p.BlockHotThreshold = uint64(n)
		}
		p.OnHotBlock = func(fn string, id mir.BlockID) {
			log.Infof("hot block %s bb%d", fn, id)
			hot = append(hot, fmt.Sprintf("%s bb%d", fn, id))
		}
	}
	result, err := machine.Call(o.entry)
	if err != nil {
		return err
	}
	if !result.IsNull() {
		fmt.Fprintln(stdout, result.String())
	}
	if p := machine.Profiler(); p != nil {
		printProfile(stderr, p, hot)
	}
	return nil
}

// loadProgram returns the program named by -load or the path argument,
// together with its packed image.
func (o *options) loadProgram(st *store.Store) (*mir.Program, *dist.Image, error) {
	if o.load != "" {
		img, err := st.Get(o.load)
		if err != nil {
			return nil, nil, err
		}
		prog, err := dist.Unpack(img)
		if err != nil {
			return nil, nil, err
		}
		log.Infof("loaded %s from store (%s)", o.load, img.ID()[:12])
		return prog, img, nil
	}
	if o.path == "" {
		return nil, nil, errors.New("no program given and no [program] image in cmrt.toml")
	}
	prog, err := dist.LoadFile(o.path)
	if err != nil {
		return nil, nil, err
	}
	img, err := dist.Pack(prog)
	if err != nil {
		return nil, nil, err
	}
	log.Infof("loaded %s (%s)", o.path, img.ID()[:12])
	return prog, img, nil
}

// printProfile writes the profile summary, then the top functions and
// the blocks that turned hot, in the order they did.
func printProfile(w io.Writer, p *vm.Profiler, hot []string) {
	stats := p.Stats()
	fmt.Fprintf(w, "profile: %d functions, %d calls, %d block visits, %d hot blocks\n",
		stats.Functions, stats.Calls, stats.BlockVisits, stats.HotBlocks)
	for _, fp := range p.TopFunctions(10) {
		mark := ""
		if fp.IsHot() {
			mark = " (hot)"
		}
		fmt.Fprintf(w, "  %-24s %8d calls%s\n", fp.Name, fp.Calls, mark)
	}
	for _, b := range hot {
		fmt.Fprintf(w, "  hot block %s\n", b)
	}
}
