// Command netdice runs probabilistic network-reliability analysis for one
// query against one topology, printing a probability bound for each
// property checked.
package main

import (
	"flag"
	"fmt"
	"os"
	"runtime/pprof"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/nsg-ethz/netdice/pkg/cliui"
	"github.com/nsg-ethz/netdice/pkg/explorer"
	"github.com/nsg-ethz/netdice/pkg/input"
	"github.com/nsg-ethz/netdice/pkg/metrics"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
	"github.com/nsg-ethz/netdice/pkg/version"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("netdice", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	versionFlag := fs.Bool("version", false, "Show version")
	help := fs.Bool("help", false, "Show help")
	queryFile := fs.String("q", "", "Query file (properties + announcements); defaults to reading them from the input file")
	precision := fs.Float64("p", 1e-5, "Target precision: stop once 1 - p_explored drops below this")
	timeout := fs.Duration("timeout", 0, "Abort exploration after this long and report the partial bound (0 disables)")
	quiet := fs.Bool("quiet", false, "Only print the final result lines")
	debug := fs.Bool("debug", false, "Enable verbose debug logging")
	reference := fs.Bool("reference", false, "Use the exhaustive reference explorer instead of the best-first engine")
	statHot := fs.Bool("stat-hot", false, "Record hot-edge fraction telemetry for the first 10 explored states")
	statPrec := fs.Bool("stat-prec", false, "Record imprecision telemetry after every explored state")
	dataOut := fs.String("data-out", "", "Write JSONL telemetry data records to this file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: netdice [options] <input-file>")
		fmt.Fprintln(os.Stderr, "\nProbabilistic network-reliability analysis.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create CPU profile: %v\n", err)
			return 1
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "could not start CPU profile: %v\n", err)
			return 1
		}
		defer pprof.StopCPUProfile()
	}

	if *help {
		fs.Usage()
		return 0
	}
	if *versionFlag {
		fmt.Printf("netdice %s\n", version.Version)
		return 0
	}

	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	inputFile := fs.Arg(0)

	level := telemetry.LevelInfo
	if *quiet {
		level = telemetry.LevelWarn
	}
	if *debug {
		level = telemetry.LevelDebug
	}
	var dataSink *os.File
	if *dataOut != "" {
		f, err := os.Create(*dataOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not create data output file %q: %v\n", *dataOut, err)
			return 1
		}
		defer f.Close()
		dataSink = f
	}
	var log *telemetry.Logger
	if dataSink != nil {
		log = telemetry.New(level, os.Stderr, dataSink)
	} else {
		log = telemetry.New(level, os.Stderr, nil)
	}

	problems, resolver, err := input.Problems(inputFile, *queryFile, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netdice: %v\n", err)
		return 1
	}

	theme := cliui.DefaultTheme(lipgloss.NewRenderer(os.Stdout))
	exitCode := 0
	for _, p := range problems {
		p.TargetPrecision = *precision

		opts := explorer.Options{
			Timeout:   *timeout,
			Logger:    log,
			StatHot:   *statHot,
			StatPrec:  *statPrec,
			FullTrace: *debug,
		}

		start := time.Now()
		var numExplored int
		var pExplored, pProperty float64
		var timedOut bool
		var runErr error
		if *reference {
			re := explorer.NewReference(p, opts)
			sol, e := re.ExploreAll()
			runErr = e
			if sol != nil {
				numExplored, pExplored, pProperty = sol.NumExplored, sol.PExplored.Val(), sol.PProperty.Val()
			}
		} else {
			ex := explorer.New(p, opts)
			sol, e := ex.ExploreAll()
			runErr = e
			timedOut = ex.TimedOut()
			if sol != nil {
				numExplored, pExplored, pProperty = sol.NumExplored, sol.PExplored.Val(), sol.PProperty.Val()
			}
		}
		elapsed := time.Since(start)

		if runErr != nil {
			fmt.Fprintf(os.Stderr, "netdice: %v\n", runErr)
			exitCode = 1
			continue
		}

		fmt.Println(theme.FormatResult(cliui.ResultLine{
			Property:    p.Property.HumanReadable(resolver),
			Lo:          pProperty,
			Hi:          pProperty + (1 - pExplored),
			NumExplored: numExplored,
			Elapsed:     elapsed,
			TimedOut:    timedOut,
		}))
	}

	if metrics.Enabled() {
		for _, st := range metrics.AllStats() {
			log.Info("metric %s: n=%d avg=%.3fms max=%.3fms total=%.3fms", st.Name, st.Count, st.AvgMs, st.MaxMs, st.TotalMs)
		}
	}

	return exitCode
}
