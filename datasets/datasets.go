// Package datasets loads and generates labeled data for the classifiers in
// scitree.
package datasets

import (
	"fmt"
	"io"
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/YuminosukeSato/scitree/pkg/validation"
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dataset is a feature matrix with aligned class labels.
type Dataset struct {
	X *mat.Dense // N×F features
	Y *mat.Dense // N×1 labels in [0, len(ClassNames))

	FeatureNames []string
	// ClassNames maps a label index back to the value found in the source.
	ClassNames []string
}

// NSamples returns the number of rows.
func (d *Dataset) NSamples() int {
	r, _ := d.X.Dims()
	return r
}

// Labels returns Y as ints.
func (d *Dataset) Labels() []int {
	n, _ := d.Y.Dims()
	out := make([]int, n)
	for i := range out {
		out[i] = int(d.Y.At(i, 0))
	}
	return out
}

// LoadCSV reads a CSV table with a header row. The target column becomes Y,
// every other column must be numeric and becomes a feature. Integer targets
// are used as labels directly; any other target is encoded by sorting its
// distinct values.
func LoadCSV(r io.Reader, target string) (*Dataset, error) {
	const op = "datasets.LoadCSV"

	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return nil, scierrors.Wrap(df.Err, "failed to read CSV")
	}
	if df.Nrow() == 0 {
		return nil, scierrors.NewEmptyDataError(op)
	}

	targetIdx := -1
	for i, name := range df.Names() {
		if name == target {
			targetIdx = i
			break
		}
	}
	if targetIdx < 0 {
		return nil, scierrors.NewValueError(op, fmt.Sprintf("target column %q not found", target))
	}

	labels, classNames, err := encodeTarget(op, df.Col(target))
	if err != nil {
		return nil, err
	}

	features := df.Drop(targetIdx)
	X, err := featureMatrix(op, features)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		X:            X,
		Y:            mat.NewDense(len(labels), 1, labels),
		FeatureNames: features.Names(),
		ClassNames:   classNames,
	}, nil
}

// LoadFeatures reads a CSV table of features only. When columns is non-empty
// exactly those columns are used, in that order; extra columns such as a
// target are ignored.
func LoadFeatures(r io.Reader, columns []string) (*mat.Dense, []string, error) {
	const op = "datasets.LoadFeatures"

	df := dataframe.ReadCSV(r)
	if df.Err != nil {
		return nil, nil, scierrors.Wrap(df.Err, "failed to read CSV")
	}
	if df.Nrow() == 0 {
		return nil, nil, scierrors.NewEmptyDataError(op)
	}
	if len(columns) > 0 {
		present := make(map[string]bool, df.Ncol())
		for _, name := range df.Names() {
			present[name] = true
		}
		for _, name := range columns {
			if !present[name] {
				return nil, nil, scierrors.NewValueError(op, fmt.Sprintf("feature column %q not found", name))
			}
		}
		df = df.Select(columns)
		if df.Err != nil {
			return nil, nil, scierrors.Wrap(df.Err, "failed to select feature columns")
		}
	}

	X, err := featureMatrix(op, df)
	if err != nil {
		return nil, nil, err
	}
	return X, df.Names(), nil
}

func featureMatrix(op string, features dataframe.DataFrame) (*mat.Dense, error) {
	if features.Ncol() == 0 {
		return nil, scierrors.NewValueError(op, "no feature columns")
	}
	X := mat.NewDense(features.Nrow(), features.Ncol(), nil)
	for j, name := range features.Names() {
		col := features.Col(name)
		if col.Type() != series.Float && col.Type() != series.Int {
			return nil, scierrors.NewValueError(op, fmt.Sprintf("feature column %q is not numeric (%s)", name, col.Type()))
		}
		X.SetCol(j, col.Float())
	}
	if _, _, err := validation.CheckX(op, X); err != nil {
		return nil, err
	}
	return X, nil
}

func encodeTarget(op string, col series.Series) ([]float64, []string, error) {
	if col.HasNaN() {
		return nil, nil, scierrors.NewValueError(op, fmt.Sprintf("target column %q has missing values", col.Name))
	}

	if col.Type() == series.Int {
		ints, err := col.Int()
		if err != nil {
			return nil, nil, scierrors.Wrap(err, "failed to read target column")
		}
		labels := make([]float64, len(ints))
		maxLabel := 0
		for i, v := range ints {
			if v < 0 {
				return nil, nil, scierrors.NewValueError(op, fmt.Sprintf("label %d at row %d is negative", v, i))
			}
			if v > maxLabel {
				maxLabel = v
			}
			labels[i] = float64(v)
		}
		names := make([]string, maxLabel+1)
		for c := range names {
			names[c] = strconv.Itoa(c)
		}
		return labels, names, nil
	}

	records := col.Records()
	distinct := make(map[string]struct{})
	for _, r := range records {
		distinct[r] = struct{}{}
	}
	names := make([]string, 0, len(distinct))
	for r := range distinct {
		names = append(names, r)
	}
	sort.Strings(names)
	index := make(map[string]int, len(names))
	for i, n := range names {
		index[n] = i
	}

	labels := make([]float64, len(records))
	for i, r := range records {
		labels[i] = float64(index[r])
	}
	return labels, names, nil
}

// WritePredictions writes one "prediction" column as CSV. When classNames is
// non-empty labels are written as their original names.
func WritePredictions(w io.Writer, labels []int, classNames []string) error {
	if len(classNames) == 0 {
		df := dataframe.New(series.New(labels, series.Int, "prediction"))
		return df.WriteCSV(w)
	}
	names := make([]string, len(labels))
	for i, l := range labels {
		if l < 0 || l >= len(classNames) {
			return scierrors.NewValueError("datasets.WritePredictions",
				fmt.Sprintf("label %d has no class name", l))
		}
		names[i] = classNames[l]
	}
	df := dataframe.New(series.New(names, series.String, "prediction"))
	return df.WriteCSV(w)
}

// MakeBlobs generates isotropic Gaussian clusters, one per class. Cluster
// centers are drawn uniformly from [-10, 10] in every dimension, and labels
// cycle through the classes so every class gets the same number of rows
// (±1).
func MakeBlobs(nSamples, nFeatures, centers int, clusterStd float64, seed uint64) (*Dataset, error) {
	switch {
	case nSamples < 1:
		return nil, scierrors.NewValidationError("n_samples", "must be at least 1", nSamples)
	case nFeatures < 1:
		return nil, scierrors.NewValidationError("n_features", "must be at least 1", nFeatures)
	case centers < 1:
		return nil, scierrors.NewValidationError("centers", "must be at least 1", centers)
	case !(clusterStd > 0) || math.IsInf(clusterStd, 0):
		return nil, scierrors.NewValidationError("cluster_std", "must be positive and finite", clusterStd)
	}

	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	uniform := distuv.Uniform{Min: -10, Max: 10, Src: src}

	means := mat.NewDense(centers, nFeatures, nil)
	for c := 0; c < centers; c++ {
		for j := 0; j < nFeatures; j++ {
			means.Set(c, j, uniform.Rand())
		}
	}

	X := mat.NewDense(nSamples, nFeatures, nil)
	y := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		c := i % centers
		for j := 0; j < nFeatures; j++ {
			normal := distuv.Normal{Mu: means.At(c, j), Sigma: clusterStd, Src: src}
			X.Set(i, j, normal.Rand())
		}
		y.Set(i, 0, float64(c))
	}

	featureNames := make([]string, nFeatures)
	for j := range featureNames {
		featureNames[j] = fmt.Sprintf("x%d", j)
	}
	classNames := make([]string, centers)
	for c := range classNames {
		classNames[c] = strconv.Itoa(c)
	}

	return &Dataset{X: X, Y: y, FeatureNames: featureNames, ClassNames: classNames}, nil
}

// TrainTestSplit shuffles the rows with the given seed and holds out
// ceil(testSize·N) of them for testing.
func TrainTestSplit(d *Dataset, testSize float64, seed uint64) (train, test *Dataset, err error) {
	n := d.NSamples()
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, scierrors.NewValidationError("test_size", "must lie in (0, 1)", testSize)
	}
	nTest := int(math.Ceil(testSize * float64(n)))
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, scierrors.NewValueError("datasets.TrainTestSplit",
			fmt.Sprintf("test_size=%v leaves an empty split for %d samples", testSize, n))
	}

	perm := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)).Perm(n)
	return d.subset(perm[nTest:]), d.subset(perm[:nTest]), nil
}

func (d *Dataset) subset(rows []int) *Dataset {
	_, nFeatures := d.X.Dims()
	X := mat.NewDense(len(rows), nFeatures, nil)
	y := mat.NewDense(len(rows), 1, nil)
	for r, i := range rows {
		X.SetRow(r, d.X.RawRowView(i))
		y.Set(r, 0, d.Y.At(i, 0))
	}
	return &Dataset{X: X, Y: y, FeatureNames: d.FeatureNames, ClassNames: d.ClassNames}
}
