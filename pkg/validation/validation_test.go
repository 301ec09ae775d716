package validation

import (
	"math"
	"testing"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCheckX(t *testing.T) {
	tests := []struct {
		name      string
		X         mat.Matrix
		wantEmpty bool
		wantErr   bool
	}{
		{"valid", mat.NewDense(2, 2, []float64{1, 2, 3, 4}), false, false},
		{"nil", nil, false, true},
		{"empty", &mat.Dense{}, true, true},
		{"nan", mat.NewDense(1, 2, []float64{1, math.NaN()}), false, true},
		{"inf", mat.NewDense(1, 1, []float64{math.Inf(-1)}), false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, f, err := CheckX("test", tt.X)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, 2, n)
				assert.Equal(t, 2, f)
				return
			}
			require.Error(t, err)
			assert.True(t, scierrors.IsInvalidInput(err))
			assert.Equal(t, tt.wantEmpty, scierrors.Is(err, scierrors.ErrEmptyData))
		})
	}
}

func TestCheckPredictX(t *testing.T) {
	_, err := CheckPredictX("predict", mat.NewDense(1, 3, nil), 2)
	require.Error(t, err)

	var dimErr *scierrors.DimensionError
	require.True(t, scierrors.As(err, &dimErr))
	assert.Equal(t, 2, dimErr.Expected)
	assert.Equal(t, 3, dimErr.Got)
	assert.Equal(t, 1, dimErr.Axis)

	n, err := CheckPredictX("predict", mat.NewDense(4, 2, nil), 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestCheckLabels(t *testing.T) {
	tests := []struct {
		name    string
		y       mat.Matrix
		n       int
		want    []int
		wantErr string
	}{
		{"valid", mat.NewDense(3, 1, []float64{0, 2, 1}), 3, []int{0, 2, 1}, ""},
		{"row mismatch", mat.NewDense(2, 1, []float64{0, 1}), 3, nil, "axis 0"},
		{"not a column", mat.NewDense(1, 2, []float64{0, 1}), 1, nil, "axis 1"},
		{"fractional", mat.NewDense(1, 1, []float64{0.5}), 1, nil, "not an integer"},
		{"negative", mat.NewDense(1, 1, []float64{-1}), 1, nil, "negative"},
		{"nan", mat.NewDense(1, 1, []float64{math.NaN()}), 1, nil, "not an integer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckLabels("fit", tt.y, tt.n)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			require.Error(t, err)
			assert.True(t, scierrors.IsInvalidInput(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCheckXy(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{0, 1, 2, 3, 4, 5})
	y := mat.NewDense(3, 1, []float64{1, 0, 1})

	labels, nFeatures, err := CheckXy("fit", X, y)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 0, 1}, labels)
	assert.Equal(t, 2, nFeatures)

	_, _, err = CheckXy("fit", &mat.Dense{}, y)
	assert.True(t, scierrors.Is(err, scierrors.ErrEmptyData))
}

func TestResolveNClasses(t *testing.T) {
	tests := []struct {
		name     string
		labels   []int
		declared int
		want     int
		wantErr  bool
	}{
		{"inferred", []int{0, 1, 2, 1}, 0, 3, false},
		{"declared larger", []int{0, 1}, 4, 4, false},
		{"declared too small", []int{0, 1, 2}, 2, 0, true},
		{"gap in labels", []int{0, 2}, 0, 0, true},
		{"gap covered by declared", []int{0, 2}, 3, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveNClasses("fit", tt.labels, tt.declared)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, scierrors.IsInvalidInput(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
