package model

import (
	"bytes"
	"path/filepath"
	"testing"

	scierrors "github.com/YuminosukeSato/scitree/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManager(t *testing.T) {
	s := NewStateManager()
	assert.False(t, s.IsFitted())

	err := s.RequireFitted("DecisionTreeClassifier", "Predict")
	require.Error(t, err)
	assert.True(t, scierrors.IsNotFitted(err))
	assert.Contains(t, err.Error(), "Call Fit() before using Predict()")

	s.SetDimensions(4, 150)
	s.SetFitted()
	assert.True(t, s.IsFitted())
	assert.NoError(t, s.RequireFitted("DecisionTreeClassifier", "Predict"))

	nFeatures, nSamples := s.GetDimensions()
	assert.Equal(t, 4, nFeatures)
	assert.Equal(t, 150, nSamples)
	assert.Equal(t, ModelState{Fitted: true, NFeatures: 4, NSamples: 150}, s.GetState())

	s.Reset()
	assert.Equal(t, ModelState{}, s.GetState())

	s.SetState(ModelState{Fitted: true, NFeatures: 2, NSamples: 3})
	assert.True(t, s.IsFitted())
}

type snapshot struct {
	Name   string
	Counts []int
	State  *StateManager
}

func TestSaveLoadModel(t *testing.T) {
	in := snapshot{Name: "forest", Counts: []int{3, 1}, State: NewStateManager()}
	in.State.SetDimensions(2, 4)
	in.State.SetFitted()

	path := filepath.Join(t.TempDir(), "model.gob")
	require.NoError(t, SaveModel(&in, path))

	var out snapshot
	require.NoError(t, LoadModel(&out, path))
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Counts, out.Counts)
	assert.True(t, out.State.IsFitted())
	assert.Equal(t, in.State.GetState(), out.State.GetState())
}

func TestSaveLoadModel_Errors(t *testing.T) {
	var out snapshot
	err := LoadModel(&out, filepath.Join(t.TempDir(), "missing.gob"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open file")

	err = LoadModelFromReader(&out, bytes.NewReader([]byte("not gob")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode model")

	err = SaveModelToWriter(func() {}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode model")
}
