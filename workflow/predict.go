package workflow

import (
	"context"
	"errors"
	"fmt"

	"svmpredict/ml"
)

// UnknownLabel is shown for outputs that are neither an index nor a label.
const UnknownLabel = "Unknown"

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrIndexOutOfRange  = errors.New("index out of range")
	ErrModelUnavailable = errors.New("model unavailable")
)

// PredictionError wraps every failure of a single prediction. Its message is
// the underlying cause.
type PredictionError struct {
	Err error
}

func (e *PredictionError) Error() string {
	return e.Err.Error()
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// PredictionResult pairs the raw classifier output with its display label.
type PredictionResult struct {
	Raw   ml.ClassOutput `json:"raw"`
	Label string         `json:"label"`
}

// Predict runs one inference and resolves its label against the profile.
// Classifier errors and panics come back as *PredictionError.
func Predict(ctx context.Context, classifier ml.Classifier, vector FeatureVector, profile DatasetProfile) (result PredictionResult, err error) {
	if vector.Len() == 0 {
		return PredictionResult{}, &PredictionError{Err: ErrEmptyInput}
	}
	if classifier == nil {
		return PredictionResult{}, &PredictionError{Err: ErrModelUnavailable}
	}
	if err := ctx.Err(); err != nil {
		return PredictionResult{}, &PredictionError{Err: err}
	}

	defer func() {
		if r := recover(); r != nil {
			result, err = PredictionResult{}, &PredictionError{Err: fmt.Errorf("inference panicked: %v", r)}
		}
	}()

	raw, err := classifier.Predict(vector.Values())
	if err != nil {
		return PredictionResult{}, &PredictionError{Err: err}
	}
	label, err := ResolveLabel(raw, profile.ClassLabels)
	if err != nil {
		return PredictionResult{Raw: raw}, &PredictionError{Err: err}
	}
	return PredictionResult{Raw: raw, Label: label}, nil
}

// ResolveLabel maps a raw output to a display label. Without labels the raw
// output's string form is used as is.
func ResolveLabel(raw ml.ClassOutput, labels []string) (string, error) {
	if len(labels) == 0 {
		return raw.String(), nil
	}
	switch raw.Kind() {
	case ml.IndexOutput:
		i, _ := raw.Index()
		if i < 0 || i >= len(labels) {
			return "", fmt.Errorf("%w: class %d, %d labels", ErrIndexOutOfRange, i, len(labels))
		}
		return labels[i], nil
	case ml.LabelOutput:
		s, _ := raw.Label()
		return s, nil
	default:
		return UnknownLabel, nil
	}
}
