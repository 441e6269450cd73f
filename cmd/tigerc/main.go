package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ghazariann/SJTU-compilers/pkg/asmfile"
	"github.com/ghazariann/SJTU-compilers/pkg/assem"
	"github.com/ghazariann/SJTU-compilers/pkg/flowgraph"
	"github.com/ghazariann/SJTU-compilers/pkg/frame"
	"github.com/ghazariann/SJTU-compilers/pkg/liveness"
	"github.com/ghazariann/SJTU-compilers/pkg/regalloc"
	"github.com/ghazariann/SJTU-compilers/pkg/temp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

var version = "0.1.0"

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	cfg := defaultConfig()

	rootCmd := &cobra.Command{
		Use:   "tigerc [file.yaml]",
		Short: "tigerc allocates registers for selected x86-64 instructions",
		Long: `tigerc is the register allocation back end of the Tiger compiler.
It reads procedures in selected-instruction form, colors them by
iterated register coalescing and prints the rewritten assembly.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.verbosity != "" {
				tlog.SetVerbosity(cfg.verbosity)
			}

			if len(args) == 0 {
				cmd.Help()
				return nil
			}

			opts, err := cfg.options()
			if err != nil {
				fmt.Fprintf(errOut, "tigerc: %v\n", err)
				return err
			}

			return doAllocate(args[0], cfg, opts, out, errOut)
		},
	}

	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVarP(&cfg.dFlow, "dflow", "", false, "Dump the flow graph of each procedure")
	rootCmd.Flags().BoolVarP(&cfg.dLive, "dlive", "", false, "Dump live-in and live-out sets")
	rootCmd.Flags().BoolVarP(&cfg.dInterf, "dinterf", "", false, "Dump the interference graph and move list")
	rootCmd.Flags().BoolVarP(&cfg.dState, "dstate", "", false, "Dump allocator state after every attempt")
	rootCmd.Flags().StringVar(&cfg.svgPath, "svg", "", "Write the live-range chart of the allocated program to `file`")
	rootCmd.Flags().StringVar(&cfg.heuristic, "heuristic", cfg.heuristic, "Spill heuristic: distance or chaitin (env "+envHeuristic+")")
	rootCmd.Flags().IntVarP(&cfg.jobs, "jobs", "j", cfg.jobs, "Procedures allocated in parallel (env "+envJobs+")")
	rootCmd.Flags().StringVar(&cfg.verbosity, "verbosity", cfg.verbosity, "Comma-separated log topics, e.g. regalloc,liveness (env "+envVerbosity+")")
	rootCmd.Flags().IntVar(&cfg.maxRounds, "max-rounds", cfg.maxRounds, "Allocation attempts before giving up, 0 to derive from the temp count (env "+envMaxRounds+")")

	return rootCmd
}

// doAllocate allocates every procedure of a file. Procedures run in parallel
// but their output is written in file order.
func doAllocate(path string, cfg *config, opts regalloc.Options, out, errOut io.Writer) error {
	f := temp.NewFactory()
	procs, err := asmfile.LoadFile(path, f)
	if err != nil {
		fmt.Fprintf(errOut, "tigerc: error reading %s: %v\n", path, err)
		return err
	}

	outputs := make([]bytes.Buffer, len(procs))
	var g errgroup.Group
	if cfg.jobs > 0 {
		g.SetLimit(cfg.jobs)
	}
	for i, p := range procs {
		p := p
		w := &outputs[i]
		g.Go(func() error {
			return allocateProcedure(w, p, cfg, opts, f, len(procs) > 1)
		})
	}
	err = g.Wait()

	for i := range outputs {
		if _, werr := outputs[i].WriteTo(out); werr != nil && err == nil {
			err = werr
		}
	}
	if err != nil {
		fmt.Fprintf(errOut, "tigerc: %v\n", err)
	}
	return err
}

func allocateProcedure(w io.Writer, p *asmfile.Procedure, cfg *config, opts regalloc.Options, f *temp.Factory, many bool) (err error) {
	// Allocator invariants panic; report them against the procedure
	defer func() {
		if r := recover(); r != nil {
			err = errors.New("procedure %s: %v", p.Name, r)
		}
	}()

	if cfg.dFlow || cfg.dLive || cfg.dInterf {
		dumpAnalyses(w, p, cfg)
	}

	fr := frame.NewFrame(temp.NamedLabel(p.Name), p.Machine, f)
	fr.SetMaxOutgoingArgs(p.OutgoingArgs)
	if cfg.dState {
		opts.DumpState = w
	}
	res := regalloc.New(p.Instrs, fr, opts).Allocate()

	assem.NewPrinter(w, res.Coloring).PrintProcedure(p.Name, res.Instrs)
	fmt.Fprintf(w, "\t.set %s, %d\n", fr.SizeLabel(), fr.Layout().TotalSize)

	if cfg.svgPath != "" {
		if err := writeLiveRanges(svgFile(cfg.svgPath, p.Name, many), res.Instrs, p.Names); err != nil {
			return errors.Wrap(err, "procedure %s", p.Name)
		}
	}
	return nil
}

// dumpAnalyses prints the requested analyses of the input program
func dumpAnalyses(w io.Writer, p *asmfile.Procedure, cfg *config) {
	pr := liveness.NewPrinter(w, p.Names)
	g := flowgraph.Build(p.Instrs)
	if cfg.dFlow {
		fmt.Fprintf(w, "# flow graph %s\n", p.Name)
		pr.PrintFlowGraph(g)
	}
	lm := liveness.Analyze(g)
	if cfg.dLive {
		fmt.Fprintf(w, "# liveness %s\n", p.Name)
		pr.PrintLiveMap(g, lm)
	}
	if cfg.dInterf {
		fmt.Fprintf(w, "# interference %s\n", p.Name)
		pr.PrintIGraph(liveness.BuildInterference(g, lm, p.Machine))
	}
}

func writeLiveRanges(path string, instrs []assem.Instr, names *temp.Map) error {
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create svg")
	}
	lm := liveness.Analyze(flowgraph.Build(instrs))
	liveness.DrawLiveRanges(file, instrs, lm, names)
	return file.Close()
}

// svgFile names one chart per procedure when a file holds several: out.svg becomes out.f.svg
func svgFile(path, proc string, many bool) string {
	if !many {
		return path
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + proc + ext
}
