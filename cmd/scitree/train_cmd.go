package main

import (
	"fmt"
	"os"
	"time"

	"github.com/YuminosukeSato/scitree/core/model"
	"github.com/YuminosukeSato/scitree/datasets"
	"github.com/YuminosukeSato/scitree/metrics"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/YuminosukeSato/scitree/sklearn/ensemble"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

type trainCmdConfig struct {
	*rootCmdConfig
	dataInput string
	target    string
	output    string
	treeJSON  string
	forest    forestFlags
	split     splitFlags
}

func trainCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &trainCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a random forest on a CSV data set",
		Long: `Train a random forest on a CSV data set, report its accuracy on a
held-out split, and optionally save it for later predictions.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with a header row (defaults to STDIN)")
	cmd.Flags().StringVarP(&(config.target), "target", "t", "", "name of the column holding class labels (required)")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to write the trained model to")
	cmd.Flags().StringVar(&(config.treeJSON), "export-tree", "", "path to write the forest's first tree as JSON")
	config.forest.register(cmd)
	config.split.register(cmd)
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func (tc *trainCmdConfig) run(cmd *cobra.Command) error {
	logger := log.GetLoggerWithName("cli.train")

	cfg, err := readConfig(tc.configPath)
	if err != nil {
		return err
	}
	tc.forest.merge(&cfg.Forest, cmd.Flags().Changed)
	tc.split.merge(&cfg.Split, cmd.Flags().Changed)

	ds, err := loadDataset(tc.dataInput, tc.target)
	if err != nil {
		return err
	}
	train, test, err := datasets.TrainTestSplit(ds, cfg.Split.TestSize, cfg.Split.Seed)
	if err != nil {
		return err
	}
	logger.Info("Data set loaded",
		log.SamplesKey, ds.NSamples(),
		log.FeaturesKey, len(ds.FeatureNames),
		log.ClassesKey, len(ds.ClassNames),
	)

	opts := append(cfg.Forest.options(), ensemble.WithNClasses(len(ds.ClassNames)))
	forest := ensemble.NewRandomForestClassifier(opts...)
	start := time.Now()
	if err := forest.Fit(train.X, train.Y); err != nil {
		return scierrors.Wrap(err, "training forest")
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "trained %d trees on %d samples in %v\n", cfg.Forest.NEstimators, train.NSamples(), time.Since(start).Round(time.Millisecond))

	pred, err := forest.PredictLabels(test.X)
	if err != nil {
		return err
	}
	acc, err := metrics.AccuracyLabels(test.Labels(), pred)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "test accuracy: %.4f (%d samples)\n", acc, test.NSamples())

	if cfg.Forest.OOBScore {
		oob, err := forest.OOBScore()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "out-of-bag accuracy: %.4f\n", oob)
	}

	cm, err := metrics.ConfusionMatrix(test.Labels(), pred, forest.NClasses())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "confusion matrix (rows: true, columns: predicted):\n%v\n", mat.Formatted(cm))

	if tc.treeJSON != "" {
		if err := exportTree(forest, tc.treeJSON); err != nil {
			return err
		}
	}
	if tc.output == "" {
		return nil
	}
	saved := &savedModel{Forest: forest, FeatureNames: ds.FeatureNames, ClassNames: ds.ClassNames}
	if err := model.SaveModel(saved, tc.output); err != nil {
		return err
	}
	logger.Info("Model saved", "path", tc.output)
	return nil
}

func exportTree(forest *ensemble.RandomForestClassifier, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return scierrors.Wrapf(err, "creating %s", path)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return forest.Estimators()[0].WriteJSON(f)
}
