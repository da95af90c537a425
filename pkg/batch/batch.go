// Package batch runs many netdice scenarios concurrently and collects their
// results, replacing the Python ExperimentRunner's per-shard
// multiprocessing.Process split with an errgroup-bounded worker pool.
//
// Grounded on original_source/netdice/experiments/experiment_runner.py
// (shard-by-width splitting, per-shard log/data files, "filter by name")
// and the teacher's pkg/workspace/loader.go errgroup idiom
// (golang.org/x/sync/errgroup, SetLimit, per-item result slice written by
// index so no locking is needed on the happy path).
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nsg-ethz/netdice/pkg/explorer"
	"github.com/nsg-ethz/netdice/pkg/input"
	"github.com/nsg-ethz/netdice/pkg/telemetry"
)

// Scenario is one netdice run: an input file, an optional query file, and a
// name used for filtering and result reporting (each Result carries the
// PropertyName it was computed for, since one input+query pair can yield
// several properties).
type Scenario struct {
	Name      string
	InputFile string
	QueryFile string
	Precision float64
	Timeout   time.Duration
}

func (s Scenario) String() string { return s.Name }

// Result is the outcome of running one property within one Scenario.
type Result struct {
	Scenario     string
	PropertyName string
	NumExplored  int
	PLow         float64
	PHigh        float64
	TimedOut     bool
	Elapsed      time.Duration
	Err          error
}

// Runner collects scenarios and executes them concurrently, grounded on
// ExperimentRunner's output_dir/prefix + scenario list.
type Runner struct {
	OutputDir string
	Prefix    string
	scenarios []Scenario
}

// NewRunner constructs a Runner, creating outputDir if necessary.
func NewRunner(outputDir, prefix string) (*Runner, error) {
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return nil, fmt.Errorf("batch: creating output dir: %w", err)
		}
	}
	return &Runner{OutputDir: outputDir, Prefix: prefix}, nil
}

// Add appends a scenario to the run list.
func (r *Runner) Add(s Scenario) { r.scenarios = append(r.scenarios, s) }

// Filter removes every scenario whose Name is not in names.
func (r *Runner) Filter(names []string) {
	keep := make(map[string]bool, len(names))
	for _, n := range names {
		keep[n] = true
	}
	filtered := r.scenarios[:0]
	for _, s := range r.scenarios {
		if keep[s.Name] {
			filtered = append(filtered, s)
		}
	}
	r.scenarios = filtered
}

// RunAll runs every scenario, bounding concurrency at nofWorkers (a
// nofWorkers <= 0 or greater than the scenario count is clamped to the
// scenario count), and returns one Result per property across all
// scenarios, in scenario order. A per-scenario failure (malformed input,
// BGP non-convergence) is captured as a Result with Err set rather than
// aborting the batch, mirroring the Python runner's per-scenario
// try/except around s.run().
func (r *Runner) RunAll(ctx context.Context, nofWorkers int) []Result {
	if len(r.scenarios) == 0 {
		return nil
	}
	if nofWorkers <= 0 || nofWorkers > len(r.scenarios) {
		nofWorkers = len(r.scenarios)
	}

	perScenario := make([][]Result, len(r.scenarios))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(nofWorkers)

	for i, s := range r.scenarios {
		i, s := i, s
		g.Go(func() error {
			select {
			case <-ctx.Done():
				perScenario[i] = []Result{{Scenario: s.Name, Err: ctx.Err()}}
				return nil
			default:
			}
			perScenario[i] = r.runScenario(s)
			return nil
		})
	}
	_ = g.Wait()

	var results []Result
	for _, rs := range perScenario {
		results = append(results, rs...)
	}
	return results
}

func (r *Runner) runScenario(s Scenario) []Result {
	logFile, dataFile := r.shardFiles(s.Name)
	var logOut *os.File
	if logFile != "" {
		if f, err := os.Create(logFile); err == nil {
			logOut = f
			defer f.Close()
		}
	}
	var dataOut *os.File
	if dataFile != "" {
		if f, err := os.Create(dataFile); err == nil {
			dataOut = f
			defer f.Close()
		}
	}
	log := telemetry.New(telemetry.LevelInfo, logWriter(logOut), dataOut)
	pop := log.WithContext(s.Name)
	defer pop()

	problems, resolver, err := input.Problems(s.InputFile, s.QueryFile, log)
	if err != nil {
		log.Error("scenario %s failed: %v", s.Name, err)
		return []Result{{Scenario: s.Name, Err: err}}
	}

	precision := s.Precision
	if precision <= 0 {
		precision = 1e-5
	}

	results := make([]Result, 0, len(problems))
	for _, p := range problems {
		p.TargetPrecision = precision
		ex := explorer.New(p, explorer.Options{Timeout: s.Timeout, Logger: log})
		start := time.Now()
		sol, err := ex.ExploreAll()
		elapsed := time.Since(start)
		res := Result{Scenario: s.Name, PropertyName: p.Property.HumanReadable(resolver), Elapsed: elapsed, TimedOut: ex.TimedOut()}
		if err != nil {
			res.Err = err
			log.Error("scenario %s: %v", s.Name, err)
		} else {
			res.NumExplored = sol.NumExplored
			res.PLow = sol.PProperty.Val()
			res.PHigh = sol.PProperty.Val() + (1 - sol.PExplored.Val())
		}
		results = append(results, res)
	}
	log.Info("finished running scenario %s", s.Name)
	return results
}

func (r *Runner) shardFiles(name string) (logFile, dataFile string) {
	if r.OutputDir == "" {
		return "", ""
	}
	safe := sanitize(name)
	return filepath.Join(r.OutputDir, fmt.Sprintf("experiment_log_%s%s.log", r.Prefix, safe)),
		filepath.Join(r.OutputDir, fmt.Sprintf("experiment_data_%s%s.log", r.Prefix, safe))
}

func sanitize(name string) string {
	out := make([]rune, 0, len(name))
	for _, c := range name {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-' || c == '_':
			out = append(out, c)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}

func logWriter(f *os.File) *os.File {
	if f == nil {
		return os.Stderr
	}
	return f
}
