package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LoadError reports a classifier artifact that is missing, unreadable or not
// a valid model.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load model %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrUnsupportedFormat is wrapped by a LoadError for unknown extensions or kinds.
var ErrUnsupportedFormat = errors.New("unsupported artifact format")

// LoadClassifier deserialises the artifact at path. The format is chosen by
// extension: .libsvm/.model are LIBSVM text models, .json carries a "kind"
// of linear_svm or decision_tree.
func LoadClassifier(path string) (clf Classifier, err error) {
	defer func() {
		if r := recover(); r != nil {
			clf, err = nil, &LoadError{Path: path, Err: fmt.Errorf("corrupt artifact: %v", r)}
		}
	}()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".libsvm", ".model":
		clf, err = loadLibSVM(path)
	case ".json":
		clf, err = loadJSON(path)
	default:
		err = ErrUnsupportedFormat
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return clf, nil
}

func loadLibSVM(path string) (Classifier, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return ReadLibSVM(file)
}

func loadJSON(path string) (Classifier, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var header struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(payload, &header); err != nil {
		return nil, err
	}
	switch header.Kind {
	case "linear_svm":
		var a linearArtifact
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, err
		}
		return newLinearSVM(a)
	case "decision_tree":
		var a treeArtifact
		if err := json.Unmarshal(payload, &a); err != nil {
			return nil, err
		}
		return newDecisionTree(a)
	case "":
		return nil, fmt.Errorf("%w: json artifact without kind", ErrUnsupportedFormat)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnsupportedFormat, header.Kind)
	}
}
