// Command netdice-batch runs a YAML-described list of netdice scenarios
// concurrently and prints one result line per property.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"github.com/nsg-ethz/netdice/pkg/batch"
	"github.com/nsg-ethz/netdice/pkg/cliui"
	"github.com/nsg-ethz/netdice/pkg/version"
)

// scenarioFile is the YAML shape read from the -scenarios file, grounded on
// original_source/netdice/experiments/scenarios.py's named-scenario lists.
type scenarioFile struct {
	OutputDir string           `yaml:"output_dir"`
	Prefix    string           `yaml:"prefix"`
	Scenarios []scenarioConfig `yaml:"scenarios"`
}

type scenarioConfig struct {
	Name      string  `yaml:"name"`
	Input     string  `yaml:"input"`
	Query     string  `yaml:"query"`
	Precision float64 `yaml:"precision"`
	TimeoutS  float64 `yaml:"timeout_seconds"`
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("netdice-batch", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	versionFlag := fs.Bool("version", false, "Show version")
	workers := fs.Int("workers", 0, "Max concurrent scenarios (0 = one per scenario)")
	filterNames := fs.String("filter", "", "Comma-separated list of scenario names to run (default: all)")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: netdice-batch [options] <scenarios.yaml>")
		fmt.Fprintln(os.Stderr, "\nRun a batch of netdice scenarios concurrently.")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *versionFlag {
		fmt.Printf("netdice-batch %s\n", version.Version)
		return 0
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}

	raw, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "netdice-batch: %v\n", err)
		return 1
	}
	var sf scenarioFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		fmt.Fprintf(os.Stderr, "netdice-batch: parsing scenarios file: %v\n", err)
		return 1
	}

	baseDir := filepath.Dir(fs.Arg(0))
	runner, err := batch.NewRunner(sf.OutputDir, sf.Prefix)
	if err != nil {
		fmt.Fprintf(os.Stderr, "netdice-batch: %v\n", err)
		return 1
	}
	for _, sc := range sf.Scenarios {
		input := sc.Input
		if input != "" && !filepath.IsAbs(input) {
			input = filepath.Join(baseDir, input)
		}
		query := sc.Query
		if query != "" && !filepath.IsAbs(query) {
			query = filepath.Join(baseDir, query)
		}
		var timeout time.Duration
		if sc.TimeoutS > 0 {
			timeout = time.Duration(sc.TimeoutS * float64(time.Second))
		}
		runner.Add(batch.Scenario{
			Name:      sc.Name,
			InputFile: input,
			QueryFile: query,
			Precision: sc.Precision,
			Timeout:   timeout,
		})
	}

	if *filterNames != "" {
		runner.Filter(splitNonEmpty(*filterNames))
	}

	results := runner.RunAll(context.Background(), *workers)

	theme := cliui.DefaultTheme(lipgloss.NewRenderer(os.Stdout))
	rows := make([]cliui.ResultLine, len(results))
	exitCode := 0
	for i, r := range results {
		rows[i] = cliui.ResultLine{
			Scenario: r.Scenario, Property: r.PropertyName,
			Lo: r.PLow, Hi: r.PHigh, NumExplored: r.NumExplored,
			Elapsed: r.Elapsed, TimedOut: r.TimedOut, Err: r.Err,
		}
		if r.Err != nil {
			exitCode = 1
		}
	}
	fmt.Println(theme.SummaryTable(rows))
	return exitCode
}

func splitNonEmpty(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
