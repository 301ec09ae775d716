package main

import (
	"os"

	"github.com/YuminosukeSato/scitree/core/model"
	"github.com/YuminosukeSato/scitree/datasets"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	modelInput string
	dataInput  string
	output     string
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict class labels with a saved forest",
		Long: `Predict a class label for every row of a CSV file using a forest saved
by train. The file must contain the columns the forest was trained on; other
columns are ignored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.modelInput), "model", "m", "", "path to a model written by train (required)")
	cmd.Flags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with a header row (defaults to STDIN)")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "", "path to write predictions as CSV (defaults to STDOUT)")
	_ = cmd.MarkFlagRequired("model")
	return cmd
}

func (pc *predictCmdConfig) run(cmd *cobra.Command) (err error) {
	var saved savedModel
	if err := model.LoadModel(&saved, pc.modelInput); err != nil {
		return err
	}
	if saved.Forest == nil {
		return scierrors.Newf("model file %s holds no forest", pc.modelInput)
	}

	r, err := openInput(pc.dataInput)
	if err != nil {
		return err
	}
	defer r.Close()

	X, _, err := datasets.LoadFeatures(r, saved.FeatureNames)
	if err != nil {
		return scierrors.Wrap(err, "reading data set")
	}
	labels, err := saved.Forest.PredictLabels(X)
	if err != nil {
		return err
	}
	log.GetLoggerWithName("cli.predict").Info("Predictions computed", log.SamplesKey, len(labels))

	if pc.output == "" {
		return datasets.WritePredictions(cmd.OutOrStdout(), labels, saved.ClassNames)
	}
	f, err := os.Create(pc.output)
	if err != nil {
		return scierrors.Wrapf(err, "creating %s", pc.output)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return datasets.WritePredictions(f, labels, saved.ClassNames)
}
