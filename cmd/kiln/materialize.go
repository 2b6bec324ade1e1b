package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"

	"kiln/internal/backend/obj"
	"kiln/internal/diagfmt"
	"kiln/internal/driver"
	"kiln/internal/layout"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize <graph-file>",
	Short: "Lower constant graphs into an object-module snapshot",
	Long: `Reads a msgpack-encoded set of evaluated constant graphs (one per
compilation unit), materializes every static and allocation for the chosen
target, and writes the resulting object module as a snapshot file.`,
	Args: cobra.ExactArgs(1),
	RunE: runMaterialize,
}

func init() {
	materializeCmd.Flags().String("target", "x86_64-linux-gnu", "target triple")
	materializeCmd.Flags().String("targets-file", "", "TOML file with additional target definitions")
	materializeCmd.Flags().StringP("out", "o", "out.kmod", "snapshot output path")
	materializeCmd.Flags().Int("jobs", env.Int("KILN_JOBS", 0), "parallel units (0 = all CPUs)")
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	triple, _ := cmd.Flags().GetString("target")
	targetsFile, _ := cmd.Flags().GetString("targets-file")
	outPath, _ := cmd.Flags().GetString("out")
	jobs, _ := cmd.Flags().GetInt("jobs")
	maxDiagnostics, _ := cmd.Flags().GetInt("max-diagnostics")
	quiet, _ := cmd.Flags().GetBool("quiet")

	target, err := resolveTarget(triple, targetsFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	graph, err := driver.LoadGraph(args[0])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	units, err := graph.BuildUnits()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	module := obj.NewObjectModule()
	results, err := driver.CompileUnits(cmd.Context(), units, target, module, driver.Options{
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
	})
	printDiagnostics(cmd, results)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	errCount := 0
	for _, res := range results {
		if res.Bag != nil && res.Bag.HasErrors() {
			errCount += res.Bag.Len()
		}
	}
	if errCount > 0 {
		err := fmt.Errorf("materialization failed with %d diagnostic(s)", errCount)
		fmt.Fprintln(os.Stderr, err)
		return err
	}

	if err := module.Snapshot().WriteFile(outPath); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write %s: %v\n", outPath, err)
		return err
	}
	if !quiet {
		fmt.Printf("wrote %s (%d data objects, target %s)\n", outPath, module.NumData(), target.Triple)
	}
	return nil
}

func resolveTarget(triple, targetsFile string) (layout.Target, error) {
	if targetsFile != "" {
		targets, err := layout.LoadTargets(targetsFile)
		if err != nil {
			return layout.Target{}, err
		}
		if t, ok := targets[triple]; ok {
			return t, nil
		}
	}
	if t, ok := layout.Builtin(triple); ok {
		return t, nil
	}
	return layout.Target{}, fmt.Errorf("unknown target %q", triple)
}

func printDiagnostics(cmd *cobra.Command, results []driver.UnitResult) {
	colorMode, _ := cmd.Flags().GetString("color")
	useColor := false
	switch colorMode {
	case "on":
		useColor = true
	case "auto":
		useColor = !color.NoColor
	}
	opts := diagfmt.PrettyOpts{Color: useColor, ShowNotes: true}
	for _, res := range results {
		diagfmt.Pretty(os.Stderr, res.Name, res.Bag, opts)
	}
}
