package workflow

import (
	"context"
	"time"

	"go.uber.org/zap"

	"svmpredict/dataset"
	"svmpredict/ml"
	"svmpredict/monitoring"
)

// ModelSource loads a classifier artifact. *ml.Store implements it.
type ModelSource interface {
	Load(path string) (ml.Classifier, error)
}

// SampleSource loads a sample table. dataset.Loader implements it.
type SampleSource interface {
	Load(path string) (*dataset.Table, error)
}

// Workflow binds the registry to its model and sample sources. It holds no
// per-user state and is safe to share between sessions.
type Workflow struct {
	registry *Registry
	models   ModelSource
	samples  SampleSource
	metrics  *monitoring.Metrics
	logger   *zap.Logger
}

// New builds a Workflow. metrics and logger may be nil.
func New(registry *Registry, models ModelSource, samples SampleSource, metrics *monitoring.Metrics, logger *zap.Logger) *Workflow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Workflow{
		registry: registry,
		models:   models,
		samples:  samples,
		metrics:  metrics,
		logger:   logger,
	}
}

// ListDatasetNames returns the dataset names in registry order.
func (w *Workflow) ListDatasetNames() []string {
	return w.registry.Names()
}

// GetProfile returns a copy of the named profile or ErrUnknownDataset.
func (w *Workflow) GetProfile(name string) (DatasetProfile, error) {
	return w.registry.Profile(name)
}

// Registry returns the dataset registry.
func (w *Workflow) Registry() *Registry {
	return w.registry
}

// LoadClassifier loads the profile's artifact. Failures are *ml.LoadError.
func (w *Workflow) LoadClassifier(profile DatasetProfile) (ml.Classifier, error) {
	clf, err := w.models.Load(profile.ModelPath)
	w.metrics.ModelLoaded(profile.Name, err)
	if err != nil {
		return nil, err
	}
	return clf, nil
}

// LoadSampleTable loads the profile's sample data. A profile without sample
// data yields the empty table. The table is never nil.
func (w *Workflow) LoadSampleTable(profile DatasetProfile) (*dataset.Table, error) {
	if profile.SampleDataPath == "" {
		return dataset.Empty(), nil
	}
	table, err := w.samples.Load(profile.SampleDataPath)
	w.metrics.SampleLoaded(profile.Name, err)
	if table == nil {
		table = dataset.Empty()
	}
	if err != nil {
		w.logger.Warn("sample data unavailable",
			zap.String("dataset", profile.Name),
			zap.String("path", profile.SampleDataPath),
			zap.Error(err))
	}
	return table, err
}

// Predict is the package-level Predict with metrics and logging.
func (w *Workflow) Predict(ctx context.Context, classifier ml.Classifier, vector FeatureVector, profile DatasetProfile) (PredictionResult, error) {
	start := time.Now()
	result, err := Predict(ctx, classifier, vector, profile)
	elapsed := time.Since(start)
	w.metrics.Predicted(profile.Name, elapsed, err)
	if err != nil {
		w.logger.Warn("prediction failed",
			zap.String("dataset", profile.Name),
			zap.Float64s("features", vector.Values()),
			zap.Error(err))
		return result, err
	}
	w.logger.Debug("prediction",
		zap.String("dataset", profile.Name),
		zap.Stringer("raw", result.Raw),
		zap.String("label", result.Label),
		zap.Duration("elapsed", elapsed))
	return result, nil
}

// NewSession starts an Idle session bound to this workflow.
func (w *Workflow) NewSession() *Session {
	return newSession(w)
}
