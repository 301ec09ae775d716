package tree

import (
	"bytes"
	"encoding/json"
	"testing"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecisionTreeClassifier_ExportJSON(t *testing.T) {
	X, y := separableData()
	dt := NewDecisionTreeClassifier(WithMaxDepth(1))

	_, err := dt.ExportJSON()
	assert.True(t, scierrors.IsNotFitted(err))

	require.NoError(t, dt.Fit(X, y))

	var buf bytes.Buffer
	require.NoError(t, dt.WriteJSON(&buf))

	var got TreeJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "DecisionTreeClassifier", got.ModelType)
	assert.Equal(t, 2, got.NClasses)
	assert.Equal(t, 2, got.NFeatures)
	assert.Equal(t, 1, got.Depth)
	assert.Equal(t, 2, got.Leaves)
	assert.Equal(t, float64(1), got.Hyperparameters["max_depth"])

	root := got.Root
	require.NotNil(t, root.Feature)
	assert.Equal(t, 0, *root.Feature)
	assert.InDelta(t, 5.0, *root.Threshold, 1e-12)
	assert.Equal(t, 20, root.Samples)
	assert.Equal(t, []int{10, 10}, root.Value)

	for _, leaf := range []*NodeJSON{root.Left, root.Right} {
		require.NotNil(t, leaf)
		assert.Nil(t, leaf.Feature)
		assert.Nil(t, leaf.Threshold)
		assert.Nil(t, leaf.Left)
		assert.Equal(t, 10, leaf.Samples)
	}
	assert.Equal(t, 0, root.Left.Class)
	assert.Equal(t, 1, root.Right.Class)

	assert.NotContains(t, buf.String(), `"left": null`)
}
