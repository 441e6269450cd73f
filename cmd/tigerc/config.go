package main

import (
	"runtime"

	"github.com/ghazariann/SJTU-compilers/pkg/regalloc"
	"github.com/xyproto/env/v2"
)

// Environment variables that set flag defaults
const (
	envHeuristic = "TIGERC_HEURISTIC"
	envJobs      = "TIGERC_JOBS"
	envVerbosity = "TIGERC_VERBOSITY"
	envMaxRounds = "TIGERC_MAX_ROUNDS"
)

// config holds everything the command line controls
type config struct {
	// Debug dumps
	dFlow   bool
	dLive   bool
	dInterf bool
	dState  bool
	svgPath string

	heuristic string
	jobs      int
	verbosity string
	maxRounds int
}

// defaultConfig reads flag defaults from the environment.
// env caches what it reads, so the cache is refreshed first.
func defaultConfig() *config {
	env.Load()
	return &config{
		heuristic: env.Str(envHeuristic, regalloc.Distance.String()),
		jobs:      env.Int(envJobs, runtime.NumCPU()),
		verbosity: env.Str(envVerbosity),
		maxRounds: env.Int(envMaxRounds, 0),
	}
}

// options turns the configuration into allocator options
func (c *config) options() (regalloc.Options, error) {
	h, err := regalloc.ParseHeuristic(c.heuristic)
	if err != nil {
		return regalloc.Options{}, err
	}
	return regalloc.Options{Heuristic: h, MaxRounds: c.maxRounds}, nil
}
