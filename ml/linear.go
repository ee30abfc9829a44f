package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearSVM is a one-vs-rest linear classifier: class k scores
// coef[k]·x + intercept[k] and the highest score wins. A single coef row is a
// binary model: a positive score selects class 1, otherwise class 0.
type LinearSVM struct {
	features []string
	classes  []string
	coef     *mat.Dense
	bias     *mat.VecDense
}

type linearArtifact struct {
	Kind      string      `json:"kind"`
	Features  []string    `json:"features,omitempty"`
	Classes   []string    `json:"classes,omitempty"`
	Coef      [][]float64 `json:"coef"`
	Intercept []float64   `json:"intercept"`
}

func newLinearSVM(a linearArtifact) (*LinearSVM, error) {
	if len(a.Classes) == 0 {
		a.Classes = nil
	}
	if len(a.Features) == 0 {
		a.Features = nil
	}
	rows := len(a.Coef)
	if rows == 0 {
		return nil, errors.New("linear_svm: coef is empty")
	}
	cols := len(a.Coef[0])
	if cols == 0 {
		return nil, errors.New("linear_svm: coef has no columns")
	}
	if len(a.Intercept) != rows {
		return nil, fmt.Errorf("linear_svm: %d intercepts for %d classes", len(a.Intercept), rows)
	}
	if a.Classes != nil && len(a.Classes) != numClasses(rows) {
		return nil, fmt.Errorf("linear_svm: %d class names for %d classes", len(a.Classes), numClasses(rows))
	}
	if a.Features != nil && len(a.Features) != cols {
		return nil, fmt.Errorf("linear_svm: %d feature names for %d weights", len(a.Features), cols)
	}

	data := make([]float64, 0, rows*cols)
	for i, row := range a.Coef {
		if len(row) != cols {
			return nil, fmt.Errorf("linear_svm: coef row %d has %d weights, want %d", i, len(row), cols)
		}
		data = append(data, row...)
	}
	return &LinearSVM{
		features: a.Features,
		classes:  a.Classes,
		coef:     mat.NewDense(rows, cols, data),
		bias:     mat.NewVecDense(rows, append([]float64(nil), a.Intercept...)),
	}, nil
}

// Predict scores one row and returns the winning class.
func (l *LinearSVM) Predict(features []float64) (ClassOutput, error) {
	rows, cols := l.coef.Dims()
	if len(features) != cols {
		return ClassOutput{}, fmt.Errorf("expected %d features, got %d", cols, len(features))
	}
	var scores mat.VecDense
	scores.MulVec(l.coef, mat.NewVecDense(cols, append([]float64(nil), features...)))
	scores.AddVec(&scores, l.bias)

	best := 0
	if rows == 1 {
		if scores.AtVec(0) > 0 {
			best = 1
		}
	} else {
		for k := 1; k < rows; k++ {
			if scores.AtVec(k) > scores.AtVec(best) {
				best = k
			}
		}
	}
	if l.classes != nil {
		return Label(l.classes[best]), nil
	}
	return Index(best), nil
}

// FeatureNames returns the training column order, if the artifact recorded one.
func (l *LinearSVM) FeatureNames() []string {
	return append([]string(nil), l.features...)
}

// numClasses is the class count of a model with rows coef rows.
func numClasses(rows int) int {
	if rows == 1 {
		return 2
	}
	return rows
}
