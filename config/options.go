package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/htsst/netalx/bfs"
	"github.com/htsst/netalx/generator"
	"github.com/htsst/netalx/numa"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Scale          int           `yaml:"scale"`           // 2^Scale vertices.
	EdgeFactor     int           `yaml:"edgefactor"`      // Scale-free edges per vertex.
	RMAT           bool          `yaml:"rmat"`            // Generate an R-MAT graph instead of Kronecker.
	Seed           uint64        `yaml:"seed"`            // Generator and root sampling seed.
	NumRoots       int           `yaml:"roots"`           // Maximum number of bfs roots.
	Input          string        `yaml:"input"`           // Read the edge list from this file instead of generating one.
	Alpha          int64         `yaml:"alpha"`           // Hybrid thresholds; 0 picks the generator default.
	Beta           int64         `yaml:"beta"`
	Threads        int           `yaml:"threads"`         // Workers; 0 uses every cpu.
	Nodes          int           `yaml:"nodes"`           // Partitions; 0 uses the online NUMA nodes.
	NodeMajor      bool          `yaml:"node_major"`      // Fill node 0 with workers first instead of dealing round-robin.
	NoHyperThreads bool          `yaml:"no_hyperthreads"` // Use one hardware thread per core.
	Pin            bool          `yaml:"pin"`             // Pin workers to cpus of their node.
	HugePages      bool          `yaml:"hugepages"`       // Advise transparent huge pages for graph and bfs state.
	EnergyLoop     bool          `yaml:"energy_loop"`     // Repeat all roots until EnergyLimit, keeping the best TEPS per root.
	EnergyLimit    time.Duration `yaml:"energy_loop_limit"`
	Tuning         bool          `yaml:"tuning"` // Sweep alpha and beta over Range, then exit.
	Range          ParamRange    `yaml:"param_range"`
	SkipValidation bool          `yaml:"skip_validation"` // Validate only the first root and reuse its edge count.
	DumpEdge       string        `yaml:"dump_edge"`
	DumpGraph      string        `yaml:"dump_graph"`
	DumpDC         string        `yaml:"dump_dc"`
	DumpDegree     string        `yaml:"dump_degree"`
	Metrics        string        `yaml:"metrics"` // Serve prometheus metrics on this address.
	Pprof          string        `yaml:"pprof"`
	Debug          int           `yaml:"debug"`
	NoColour       bool          `yaml:"no_colour"`
	LogJSON        bool          `yaml:"log_json"`

	ConfigFile string `yaml:"-"`
	EnvFile    string `yaml:"-"`
}

// Env holds the environment variables of the graph500 tooling.
type Env struct {
	Threads     int        `envconfig:"OMP_NUM_THREADS"`
	EnergyLimit float64    `envconfig:"ENERGY_LOOP_LIMIT"` // Seconds.
	Range       ParamRange `envconfig:"PARAMRANGE"`
	DumpEdge    string     `envconfig:"DUMPEDGE"`
	DumpGraph   string     `envconfig:"DUMPGRAPH"`
	DumpDC      string     `envconfig:"DUMP_DC"`
	DumpDegree  string     `envconfig:"DUMP_DEGREE"`
}

func Defaults() Options {
	return Options{
		Scale:       16,
		EdgeFactor:  16,
		Seed:        1,
		NumRoots:    64,
		EnergyLimit: 10 * time.Second,
		Range:       ParamRange{AlphaEnd: 10, BetaEnd: 10},
	}
}

// bind declares every flag onto o.
func bind(fs *flag.FlagSet, o *Options) {
	fs.IntVar(&o.Scale, "s", o.Scale, "Generate 2^SCALE vertices.")
	fs.IntVar(&o.EdgeFactor, "e", o.EdgeFactor, "Generate n*edgefactor edges.")
	fs.BoolVar(&o.RMAT, "R", o.RMAT, "Generate an R-MAT graph (default: Kronecker).")
	fs.BoolVar(&o.EnergyLoop, "E", o.EnergyLoop, "Enable energy loop mode (time limit from ENERGY_LOOP_LIMIT or -energylimit).")
	fs.DurationVar(&o.EnergyLimit, "energylimit", o.EnergyLimit, "Time limit of the energy loop.")
	fs.Var((*thresholdsValue)(o), "k", "alpha:beta parameters of the hybrid algorithm.")
	fs.BoolVar(&o.Tuning, "P", o.Tuning, "Parameter tuning mode (alpha/beta range from PARAMRANGE or -paramrange).")
	fs.Var(&o.Range, "paramrange", "As:Ae:Bs:Be, tune alpha in [2^As, 2^Ae] and beta in [2^Bs, 2^Be].")
	fs.IntVar(&o.Threads, "p", o.Threads, "Number of threads (default: one per cpu).")
	fs.IntVar(&o.Nodes, "nodes", o.Nodes, "Number of partitions (default: online NUMA nodes).")
	fs.BoolVar(&o.NodeMajor, "N", o.NodeMajor, "Node-major worker placement (default: core-major).")
	fs.BoolVar(&o.NoHyperThreads, "A", o.NoHyperThreads, "Disable hyper-threading siblings.")
	fs.BoolVar(&o.Pin, "pin", o.Pin, "Pin each worker to a cpu of its node.")
	fs.BoolVar(&o.HugePages, "hugepages", o.HugePages, "Advise transparent huge pages for large allocations.")
	fs.Uint64Var(&o.Seed, "seed", o.Seed, "Seed of the generator and of root sampling.")
	fs.IntVar(&o.NumRoots, "roots", o.NumRoots, "Maximum number of bfs roots.")
	fs.StringVar(&o.Input, "i", o.Input, "Read the edge list from a 'p sp n m' / 'a v w 1' file (.sz for snappy) instead of generating.")
	fs.BoolVar(&o.SkipValidation, "skipvalidation", o.SkipValidation, "Validate only the first bfs tree.")
	fs.StringVar(&o.DumpEdge, "dumpedge", o.DumpEdge, "Dump the edge list into this file and exit.")
	fs.StringVar(&o.DumpGraph, "dumpgraph", o.DumpGraph, "Dump the graph into this file and exit.")
	fs.StringVar(&o.DumpDC, "dumpdc", o.DumpDC, "Dump the degree of every vertex into this file and exit.")
	fs.StringVar(&o.DumpDegree, "dumpdegree", o.DumpDegree, "Dump the degree distribution into this file and exit.")
	fs.StringVar(&o.Metrics, "metrics", o.Metrics, "If set, serve prometheus metrics on the given address:port. E.g.\"0.0.0.0:9100\".")
	fs.StringVar(&o.Pprof, "pprof", o.Pprof, "If set, will serve pprof on the given address:port. E.g.\"0.0.0.0:6060\".")
	fs.IntVar(&o.Debug, "debug", o.Debug, "Adds extra debug output. Level 0 for info, 1 for debug (per level bfs profile), 2 for trace.")
	fs.BoolVar(&o.NoColour, "nc", o.NoColour, "Removes the colouring from the log output.")
	fs.BoolVar(&o.LogJSON, "logjson", o.LogJSON, "Log JSON lines instead of the console format.")
	fs.StringVar(&o.ConfigFile, "config", o.ConfigFile, "YAML file with options; flags override it.")
	fs.StringVar(&o.EnvFile, "env", o.EnvFile, "Dotenv file loaded before reading the environment.")
}

// Load merges, in increasing priority: defaults, the -config file, the environment (after
// loading the -env file) and the flags present in args.
func Load(args []string) (Options, error) {
	scratch := Defaults()
	fs := flag.NewFlagSet("netalx", flag.ContinueOnError)
	bind(fs, &scratch)
	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}
	if fs.NArg() > 0 {
		return Options{}, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	opts := Defaults()
	if scratch.ConfigFile != "" {
		if err := opts.readFile(scratch.ConfigFile); err != nil {
			return Options{}, err
		}
	}
	if scratch.EnvFile != "" {
		if err := godotenv.Load(scratch.EnvFile); err != nil {
			return Options{}, fmt.Errorf("loading %s: %w", scratch.EnvFile, err)
		}
	}
	var env Env
	if err := envconfig.Process("", &env); err != nil {
		return Options{}, err
	}
	opts.applyEnv(&env)

	final := flag.NewFlagSet("netalx", flag.ContinueOnError)
	bind(final, &opts)
	var err error
	fs.Visit(func(f *flag.Flag) {
		if err == nil {
			err = final.Set(f.Name, f.Value.String())
		}
	})
	if err != nil {
		return Options{}, err
	}

	opts.resolve()
	return opts, opts.Validate()
}

// Usage prints the flag help together with the environment variables.
func Usage() {
	fs := flag.NewFlagSet("netalx", flag.ContinueOnError)
	o := Defaults()
	bind(fs, &o)
	fs.SetOutput(os.Stderr)
	fs.PrintDefaults()
	_ = envconfig.Usage("", &Env{})
}

func (o *Options) readFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(o); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

func (o *Options) applyEnv(env *Env) {
	if env.Threads > 0 {
		o.Threads = env.Threads
	}
	if env.EnergyLimit > 0 {
		o.EnergyLimit = time.Duration(env.EnergyLimit * float64(time.Second))
	}
	if env.Range.set {
		o.Range = env.Range
	}
	setIf(&o.DumpEdge, env.DumpEdge)
	setIf(&o.DumpGraph, env.DumpGraph)
	setIf(&o.DumpDC, env.DumpDC)
	setIf(&o.DumpDegree, env.DumpDegree)
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// resolve fills the machine and generator dependent defaults.
func (o *Options) resolve() {
	if o.NoHyperThreads {
		numa.DisableHyperThreads()
	}
	if o.Threads == 0 {
		o.Threads = numa.NumCPUs()
	}
	if o.Nodes == 0 {
		o.Nodes = min(numa.DetectNodes(), o.Threads)
	}
	if o.Alpha == 0 || o.Beta == 0 {
		def := bfs.KroneckerThresholds
		if o.RMAT {
			def = bfs.RMATThresholds
		}
		if o.Alpha == 0 {
			o.Alpha = def.Alpha
		}
		if o.Beta == 0 {
			o.Beta = def.Beta
		}
	}
}

func (o *Options) Validate() error {
	var errs []error
	if o.Input == "" && (o.Scale < 1 || o.Scale > 40) {
		errs = append(errs, fmt.Errorf("scale %d out of range [1, 40]", o.Scale))
	}
	if o.Input == "" && o.EdgeFactor < 1 {
		errs = append(errs, fmt.Errorf("edgefactor %d must be positive", o.EdgeFactor))
	}
	if o.Threads < 1 {
		errs = append(errs, fmt.Errorf("invalid thread count %d", o.Threads))
	}
	if o.Nodes < 1 || o.Nodes > o.Threads {
		errs = append(errs, fmt.Errorf("need between 1 and %d nodes, got %d", o.Threads, o.Nodes))
	}
	if o.Alpha < 1 || o.Beta < 1 {
		errs = append(errs, fmt.Errorf("alpha and beta must be positive, got %d:%d", o.Alpha, o.Beta))
	}
	if o.NumRoots < 1 {
		errs = append(errs, fmt.Errorf("need at least one root, got %d", o.NumRoots))
	}
	if o.EnergyLoop && o.EnergyLimit <= 0 {
		errs = append(errs, fmt.Errorf("energy loop limit %v must be positive", o.EnergyLimit))
	}
	if o.Tuning {
		if err := o.Range.check(); err != nil {
			errs = append(errs, err)
		}
	}
	if o.Debug < 0 {
		errs = append(errs, fmt.Errorf("invalid debug level %d", o.Debug))
	}
	return errors.Join(errs...)
}

func (o *Options) Thresholds() bfs.Thresholds {
	return bfs.Thresholds{Alpha: o.Alpha, Beta: o.Beta}
}

func (o *Options) Generator() generator.Params {
	p := generator.DefaultParams(o.Scale, o.EdgeFactor)
	if o.RMAT {
		p.Kind = generator.RMAT
	}
	p.Seed = o.Seed
	p.Lists = o.Nodes
	return p
}

// thresholdsValue reads -k alpha:beta into Options.
type thresholdsValue Options

func (v *thresholdsValue) String() string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(v.Alpha, 10) + ":" + strconv.FormatInt(v.Beta, 10)
}

func (v *thresholdsValue) Set(s string) error {
	a, b, ok := strings.Cut(s, ":")
	if !ok {
		return fmt.Errorf("expected alpha:beta, got %q", s)
	}
	alpha, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return fmt.Errorf("bad alpha in %q: %w", s, err)
	}
	beta, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return fmt.Errorf("bad beta in %q: %w", s, err)
	}
	v.Alpha, v.Beta = alpha, beta
	return nil
}
