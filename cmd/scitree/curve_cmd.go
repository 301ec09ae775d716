package main

import (
	"fmt"

	"github.com/YuminosukeSato/scitree/datasets"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/log"
	"github.com/YuminosukeSato/scitree/sklearn/ensemble"
	"github.com/spf13/cobra"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type curveCmdConfig struct {
	*rootCmdConfig
	dataInput string
	target    string
	output    string
	maxTrees  int
	step      int
	forest    forestFlags
	split     splitFlags
}

func curveCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &curveCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Plot test accuracy against the number of trees",
		Long: `Train forests of increasing size on the same split and plot their test
accuracy to a PNG file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.run(cmd)
		},
	}
	cmd.Flags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with a header row (defaults to STDIN)")
	cmd.Flags().StringVarP(&(config.target), "target", "t", "", "name of the column holding class labels (required)")
	cmd.Flags().StringVarP(&(config.output), "output", "o", "accuracy.png", "path of the PNG file to write")
	cmd.Flags().IntVar(&(config.maxTrees), "max-trees", 50, "largest forest to train")
	cmd.Flags().IntVar(&(config.step), "step", 5, "increment in the number of trees between points")
	config.forest.register(cmd)
	config.split.register(cmd)
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

type curvePoint struct {
	trees    int
	accuracy float64
}

func (cc *curveCmdConfig) run(cmd *cobra.Command) error {
	if cc.maxTrees < 1 {
		return scierrors.NewValidationError("max-trees", "must be at least 1", cc.maxTrees)
	}
	if cc.step < 1 {
		return scierrors.NewValidationError("step", "must be at least 1", cc.step)
	}

	cfg, err := readConfig(cc.configPath)
	if err != nil {
		return err
	}
	cc.forest.merge(&cfg.Forest, cmd.Flags().Changed)
	cc.split.merge(&cfg.Split, cmd.Flags().Changed)

	ds, err := loadDataset(cc.dataInput, cc.target)
	if err != nil {
		return err
	}
	train, test, err := datasets.TrainTestSplit(ds, cfg.Split.TestSize, cfg.Split.Seed)
	if err != nil {
		return err
	}

	points, err := accuracyCurve(cfg.Forest, len(ds.ClassNames), train, test, cc.maxTrees, cc.step)
	if err != nil {
		return err
	}
	for _, p := range points {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%.4f\n", p.trees, p.accuracy)
	}
	if err := plotCurve(points, cc.output); err != nil {
		return err
	}
	log.GetLoggerWithName("cli.curve").Info("Accuracy curve written", "path", cc.output, log.TreesKey, cc.maxTrees)
	return nil
}

// accuracyCurve fits one forest per size in step, 2·step, ..., always ending
// at maxTrees.
func accuracyCurve(fc forestConfig, nClasses int, train, test *datasets.Dataset, maxTrees, step int) ([]curvePoint, error) {
	var sizes []int
	for n := step; n < maxTrees; n += step {
		sizes = append(sizes, n)
	}
	sizes = append(sizes, maxTrees)

	points := make([]curvePoint, 0, len(sizes))
	for _, n := range sizes {
		fc.NEstimators = n
		opts := append(fc.options(), ensemble.WithNClasses(nClasses))
		forest := ensemble.NewRandomForestClassifier(opts...)
		if err := forest.Fit(train.X, train.Y); err != nil {
			return nil, scierrors.Wrapf(err, "training forest with %d trees", n)
		}
		points = append(points, curvePoint{trees: n, accuracy: forest.Score(test.X, test.Y)})
	}
	return points, nil
}

func plotCurve(points []curvePoint, filename string) error {
	p := plot.New()
	p.Title.Text = "Random forest accuracy"
	p.X.Label.Text = "Number of trees"
	p.Y.Label.Text = "Test accuracy"
	p.Y.Min, p.Y.Max = 0, 1

	pts := make(plotter.XYs, len(points))
	for i, pt := range points {
		pts[i].X = float64(pt.trees)
		pts[i].Y = pt.accuracy
	}
	line, scatter, err := plotter.NewLinePoints(pts)
	if err != nil {
		return scierrors.Wrap(err, "building accuracy plot")
	}
	line.LineStyle.Width = vg.Points(2)
	scatter.Radius = vg.Points(3)
	p.Add(line, scatter, plotter.NewGrid())

	if err := p.Save(6*vg.Inch, 4*vg.Inch, filename); err != nil {
		return scierrors.Wrapf(err, "saving plot to %s", filename)
	}
	return nil
}
