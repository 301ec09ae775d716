package main

import (
	"io"
	"os"

	"github.com/YuminosukeSato/scitree/datasets"
	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/sklearn/ensemble"
)

// savedModel is what train writes and predict reads: the forest plus the
// column layout it was trained on.
type savedModel struct {
	Forest       *ensemble.RandomForestClassifier
	FeatureNames []string
	ClassNames   []string
}

// openInput opens path for reading, or stdin when path is empty.
func openInput(path string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, scierrors.Wrapf(err, "opening %s", path)
	}
	return f, nil
}

func loadDataset(path, target string) (*datasets.Dataset, error) {
	r, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	ds, err := datasets.LoadCSV(r, target)
	if err != nil {
		return nil, scierrors.Wrap(err, "reading data set")
	}
	return ds, nil
}
