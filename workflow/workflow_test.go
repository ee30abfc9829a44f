package workflow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"svmpredict/config"
	"svmpredict/dataset"
	"svmpredict/ml"
	"svmpredict/monitoring"
)

type fakeClassifier struct {
	out   ml.ClassOutput
	err   error
	panic bool
	names []string
	got   []float64
}

func (f *fakeClassifier) Predict(features []float64) (ml.ClassOutput, error) {
	if f.panic {
		panic("shape mismatch")
	}
	f.got = features
	return f.out, f.err
}

func (f *fakeClassifier) FeatureNames() []string {
	return f.names
}

type fakeModels map[string]ml.Classifier

func (m fakeModels) Load(path string) (ml.Classifier, error) {
	clf, ok := m[path]
	if !ok {
		return nil, &ml.LoadError{Path: path, Err: errors.New("no such file")}
	}
	return clf, nil
}

func shippedWorkflow(t *testing.T) *Workflow {
	t.Helper()
	cfg := config.Default()
	cfg.Rebase("..")
	registry, err := RegistryFromConfig(cfg)
	require.NoError(t, err)
	store, err := ml.NewStore(0, nil)
	require.NoError(t, err)
	return New(registry, store, dataset.Loader{}, monitoring.NewMetrics(), nil)
}

func TestNewRegistryValidation(t *testing.T) {
	tests := []struct {
		name     string
		profiles []DatasetProfile
	}{
		{"empty", nil},
		{"no name", []DatasetProfile{{InputFeatures: []string{"a"}}}},
		{"no features", []DatasetProfile{{Name: "x"}}},
		{"duplicate", []DatasetProfile{
			{Name: "x", InputFeatures: []string{"a"}},
			{Name: "x", InputFeatures: []string{"b"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.profiles)
			assert.Error(t, err)
		})
	}
}

func TestRegistryProfiles(t *testing.T) {
	wf := shippedWorkflow(t)
	assert.Equal(t, []string{"Fish Dataset", "Fruit Dataset", "Pumpkin Dataset"}, wf.ListDatasetNames())

	fish, err := wf.GetProfile("Fish Dataset")
	require.NoError(t, err)
	assert.Len(t, fish.InputFeatures, 3)
	assert.Len(t, fish.ClassLabels, 9)

	fish.InputFeatures[0] = "mutated"
	again, err := wf.GetProfile("Fish Dataset")
	require.NoError(t, err)
	assert.Equal(t, "length", again.InputFeatures[0])

	_, err = wf.GetProfile("Bird Dataset")
	assert.ErrorIs(t, err, ErrUnknownDataset)
}

func TestLoadShippedClassifiers(t *testing.T) {
	wf := shippedWorkflow(t)
	for _, name := range wf.ListDatasetNames() {
		t.Run(name, func(t *testing.T) {
			profile, err := wf.GetProfile(name)
			require.NoError(t, err)
			clf, err := wf.LoadClassifier(profile)
			require.NoError(t, err)

			table, err := wf.LoadSampleTable(profile)
			require.NoError(t, err)
			require.Positive(t, table.Len())

			result, err := wf.Predict(context.Background(), clf, CollectFeatureVector(profile, table, nil), profile)
			require.NoError(t, err)
			assert.Contains(t, profile.ClassLabels, result.Label)
		})
	}
}

func TestLoadClassifierMissingArtifact(t *testing.T) {
	wf := shippedWorkflow(t)
	profile, err := wf.GetProfile("Fish Dataset")
	require.NoError(t, err)
	profile.ModelPath = "../models/does_not_exist.json"

	clf, err := wf.LoadClassifier(profile)
	assert.Nil(t, clf)
	var loadErr *ml.LoadError
	assert.ErrorAs(t, err, &loadErr)
}

func TestLoadSampleTableUnsupportedFormat(t *testing.T) {
	wf := shippedWorkflow(t)
	profile, err := wf.GetProfile("Fish Dataset")
	require.NoError(t, err)
	profile.SampleDataPath = "../data/fish_data.txt"

	table, err := wf.LoadSampleTable(profile)
	var formatErr *dataset.FormatError
	assert.ErrorAs(t, err, &formatErr)
	require.NotNil(t, table)
	assert.Equal(t, 0, table.Len())
	assert.Empty(t, table.Columns())
}

func TestFishEndToEnd(t *testing.T) {
	wf := shippedWorkflow(t)
	profile, err := wf.GetProfile("Fish Dataset")
	require.NoError(t, err)
	clf, err := wf.LoadClassifier(profile)
	require.NoError(t, err)
	table, err := wf.LoadSampleTable(profile)
	require.NoError(t, err)

	vector := CollectFeatureVector(profile, table, nil)
	require.Equal(t, 3, vector.Len())

	result, err := wf.Predict(context.Background(), clf, vector, profile)
	require.NoError(t, err)
	assert.NotEqual(t, UnknownLabel, result.Label)
	assert.Contains(t, profile.ClassLabels, result.Label)
	assert.Equal(t, "Anabas testudineus", result.Label)
}

func TestWorkflowPredictRecordsMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	registry, err := NewRegistry([]DatasetProfile{{Name: "x", ModelPath: "m", InputFeatures: []string{"a"}}})
	require.NoError(t, err)
	wf := New(registry, fakeModels{}, dataset.Loader{}, metrics, nil)
	profile := registry.First()

	_, err = wf.Predict(context.Background(), &fakeClassifier{out: ml.Index(1)}, CollectFeatureVector(profile, nil, nil), profile)
	require.NoError(t, err)
	_, err = wf.LoadClassifier(profile)
	require.Error(t, err)

	families, err := metrics.Registry().Gather()
	require.NoError(t, err)
	var seen []string
	for _, f := range families {
		seen = append(seen, f.GetName())
	}
	assert.Contains(t, seen, "svmpredict_predictions_total")
	assert.Contains(t, seen, "svmpredict_model_loads_total")
}
