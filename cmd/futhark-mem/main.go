package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/potatoboiler/futhark/pkg/interference"
	"github.com/potatoboiler/futhark/pkg/lastuse"
	"github.com/potatoboiler/futhark/pkg/memir"
	"github.com/potatoboiler/futhark/pkg/reuse"
	"github.com/potatoboiler/futhark/pkg/rewrite"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// Dump flags for inspecting intermediate tables
var (
	dLastUse      bool
	dInterference bool
	dReuse        bool
	dIR           bool
	debugReuse    bool
	outputPath    string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "futhark-mem [file]",
		Short: "futhark-mem merges memory blocks in memory-annotated IR programs",
		Long: `futhark-mem reads a YAML-encoded, memory-annotated IR program,
decides which arrays may share memory blocks, and emits the program
with the reuse decisions applied. Dump flags expose the intermediate
last-use, interference, and reuse tables.`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return process(args[0], out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dLastUse, "dump-lastuse", false, "Dump last-use tables")
	rootCmd.Flags().BoolVar(&dInterference, "dump-interference", false, "Dump interference tables")
	rootCmd.Flags().BoolVar(&dReuse, "dump-reuse", false, "Dump block reuse mappings")
	rootCmd.Flags().BoolVar(&dIR, "dump-ir", false, "Print the rewritten program instead of YAML")
	rootCmd.Flags().BoolVar(&debugReuse, "debug-reuse", false, "Trace reuse decisions to stderr")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write the rewritten program to a file instead of stdout")

	return rootCmd
}

func process(filename string, out, errOut io.Writer) error {
	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(errOut, "futhark-mem: error reading %s: %v\n", filename, err)
		return err
	}
	defer f.Close()

	prog, err := memir.DecodeProgram(f)
	if err != nil {
		fmt.Fprintf(errOut, "futhark-mem: %s: %v\n", filename, err)
		return err
	}

	if debugReuse {
		reuse.EnableTracing(errOut)
	}

	for i := range prog.Funs {
		fd := &prog.Funs[i]
		lu := lastuse.Analyze(fd)
		tbl := interference.Build(fd, lu)

		if dLastUse {
			dumpLastUse(out, fd.Name, lu)
		}
		if dInterference {
			dumpInterference(out, fd.Name, tbl)
		}

		mapping, err := reuse.AllocateFunDef(fd, tbl)
		if err != nil {
			// Allocation failure is fatal for this function only;
			// the function keeps its original blocks.
			fmt.Fprintf(errOut, "futhark-mem: warning: %v; keeping original blocks\n", err)
			continue
		}
		if dReuse {
			dumpMapping(out, fd.Name, mapping)
		}
		rewrite.ApplyFunDef(fd, mapping)
	}

	if dLastUse || dInterference || dReuse {
		return nil
	}
	if dIR {
		printer := memir.NewPrinter(out)
		printer.PrintProgram(prog)
		return nil
	}
	return writeProgram(prog, out, errOut)
}

func writeProgram(prog *memir.Program, out, errOut io.Writer) error {
	w := out
	if outputPath != "" {
		outFile, err := os.Create(outputPath)
		if err != nil {
			fmt.Fprintf(errOut, "futhark-mem: error creating %s: %v\n", outputPath, err)
			return err
		}
		defer outFile.Close()
		w = outFile
	}
	return memir.EncodeProgram(w, prog)
}

func dumpLastUse(w io.Writer, fn memir.Name, lu lastuse.Table) {
	fmt.Fprintf(w, "last use (%s):\n", fn)
	names := make([]memir.Name, 0, len(lu))
	for n := range lu {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, n := range names {
		fmt.Fprintf(w, "  %s: %d\n", n, lu[n])
	}
}

func dumpInterference(w io.Writer, fn memir.Name, tbl *interference.Table) {
	fmt.Fprintf(w, "interference (%s):\n", fn)
	for _, n := range tbl.Names() {
		fmt.Fprintf(w, "  %s: %v\n", n, tbl.InterferesWith(n).Sorted())
	}
}

func dumpMapping(w io.Writer, fn memir.Name, mapping map[memir.Name]memir.Name) {
	fmt.Fprintf(w, "block reuse (%s):\n", fn)
	names := make([]memir.Name, 0, len(mapping))
	for n := range mapping {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	for _, n := range names {
		fmt.Fprintf(w, "  %s -> %s\n", n, mapping[n])
	}
}
