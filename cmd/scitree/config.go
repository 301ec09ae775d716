package main

import (
	"os"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/sklearn/ensemble"
	"github.com/spf13/cobra"
	yaml "gopkg.in/yaml.v2"
)

// fileConfig is the YAML document accepted by --config.
//
//	forest:
//	  n_estimators: 200
//	  max_depth: -1        # unbounded
//	  oob_score: true
//	split:
//	  test_size: 0.2
//	  seed: 7
type fileConfig struct {
	Forest forestConfig `yaml:"forest"`
	Split  splitConfig  `yaml:"split"`
}

type forestConfig struct {
	NEstimators     int   `yaml:"n_estimators"`
	MaxDepth        int   `yaml:"max_depth"` // negative grows unbounded trees
	MinSamplesLeaf  int   `yaml:"min_samples_leaf"`
	MinSamplesSplit int   `yaml:"min_samples_split"`
	Bootstrap       bool  `yaml:"bootstrap"`
	OOBScore        bool  `yaml:"oob_score"`
	NJobs           int   `yaml:"n_jobs"`
	RandomState     int64 `yaml:"random_state"`
}

type splitConfig struct {
	TestSize float64 `yaml:"test_size"`
	Seed     uint64  `yaml:"seed"`
}

func defaultConfig() fileConfig {
	return fileConfig{
		Forest: forestConfig{
			NEstimators:     100,
			MaxDepth:        10,
			MinSamplesLeaf:  1,
			MinSamplesSplit: 2,
			Bootstrap:       true,
			NJobs:           1,
			RandomState:     -1,
		},
		Split: splitConfig{TestSize: 0.25},
	}
}

// readConfig returns the defaults overlaid with the file at path. Keys absent
// from the file keep their defaults; unknown keys are rejected.
func readConfig(path string) (fileConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, scierrors.Wrapf(err, "reading config %s", path)
	}
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return cfg, scierrors.Wrapf(err, "parsing config %s", path)
	}
	return cfg, nil
}

// forestFlags holds the command-line overrides for forestConfig.
type forestFlags struct {
	values forestConfig
}

func (ff *forestFlags) register(cmd *cobra.Command) {
	d := defaultConfig().Forest
	fs := cmd.Flags()
	fs.IntVar(&ff.values.NEstimators, "n-estimators", d.NEstimators, "number of trees in the forest")
	fs.IntVar(&ff.values.MaxDepth, "max-depth", d.MaxDepth, "maximum tree depth (negative for unbounded)")
	fs.IntVar(&ff.values.MinSamplesLeaf, "min-samples-leaf", d.MinSamplesLeaf, "a node with this many samples or fewer becomes a leaf")
	fs.IntVar(&ff.values.MinSamplesSplit, "min-samples-split", d.MinSamplesSplit, "minimum samples required to split a node")
	fs.BoolVar(&ff.values.Bootstrap, "bootstrap", d.Bootstrap, "train each tree on a bootstrap resample")
	fs.BoolVar(&ff.values.OOBScore, "oob-score", d.OOBScore, "estimate accuracy on out-of-bag samples")
	fs.IntVarP(&ff.values.NJobs, "jobs", "j", d.NJobs, "trees fitted in parallel (-1 for all CPUs)")
	fs.Int64Var(&ff.values.RandomState, "seed", d.RandomState, "seed for bootstrap draws (negative seeds from the clock)")
}

// merge overrides cfg with every flag the user set explicitly.
func (ff *forestFlags) merge(cfg *forestConfig, changed func(name string) bool) {
	if changed("n-estimators") {
		cfg.NEstimators = ff.values.NEstimators
	}
	if changed("max-depth") {
		cfg.MaxDepth = ff.values.MaxDepth
	}
	if changed("min-samples-leaf") {
		cfg.MinSamplesLeaf = ff.values.MinSamplesLeaf
	}
	if changed("min-samples-split") {
		cfg.MinSamplesSplit = ff.values.MinSamplesSplit
	}
	if changed("bootstrap") {
		cfg.Bootstrap = ff.values.Bootstrap
	}
	if changed("oob-score") {
		cfg.OOBScore = ff.values.OOBScore
	}
	if changed("jobs") {
		cfg.NJobs = ff.values.NJobs
	}
	if changed("seed") {
		cfg.RandomState = ff.values.RandomState
	}
}

func (fc forestConfig) options() []ensemble.ForestOption {
	opts := []ensemble.ForestOption{
		ensemble.WithNEstimators(fc.NEstimators),
		ensemble.WithMinSamplesLeaf(fc.MinSamplesLeaf),
		ensemble.WithMinSamplesSplit(fc.MinSamplesSplit),
		ensemble.WithBootstrap(fc.Bootstrap),
		ensemble.WithOOBScore(fc.OOBScore),
		ensemble.WithNJobs(fc.NJobs),
		ensemble.WithRandomState(fc.RandomState),
	}
	if fc.MaxDepth < 0 {
		opts = append(opts, ensemble.WithUnlimitedDepth())
	} else {
		opts = append(opts, ensemble.WithMaxDepth(fc.MaxDepth))
	}
	return opts
}

// splitFlags holds the command-line overrides for splitConfig.
type splitFlags struct {
	values splitConfig
}

func (sf *splitFlags) register(cmd *cobra.Command) {
	d := defaultConfig().Split
	cmd.Flags().Float64Var(&sf.values.TestSize, "test-size", d.TestSize, "fraction of rows held out for evaluation")
	cmd.Flags().Uint64Var(&sf.values.Seed, "split-seed", d.Seed, "seed for the train/test shuffle")
}

func (sf *splitFlags) merge(cfg *splitConfig, changed func(name string) bool) {
	if changed("test-size") {
		cfg.TestSize = sf.values.TestSize
	}
	if changed("split-seed") {
		cfg.Seed = sf.values.Seed
	}
}
