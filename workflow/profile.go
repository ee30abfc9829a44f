// Package workflow implements the prediction workflow: pick a dataset
// profile, load its classifier and sample table, build a feature vector and
// resolve the predicted class label.
package workflow

import (
	"errors"
	"fmt"

	"svmpredict/config"
)

// ErrUnknownDataset is returned for names missing from the registry.
var ErrUnknownDataset = errors.New("unknown dataset")

// DatasetProfile describes one selectable demo scenario. InputFeatures is
// both the form order and the column order handed to the classifier.
type DatasetProfile struct {
	Name           string   `json:"name"`
	ModelPath      string   `json:"model_path"`
	SampleDataPath string   `json:"sample_data_path"`
	InputFeatures  []string `json:"input_features"`
	ClassLabels    []string `json:"class_labels,omitempty"`
}

func (p DatasetProfile) clone() DatasetProfile {
	p.InputFeatures = append([]string(nil), p.InputFeatures...)
	if p.ClassLabels != nil {
		p.ClassLabels = append([]string(nil), p.ClassLabels...)
	}
	return p
}

// Registry is the immutable, ordered set of profiles built at startup.
type Registry struct {
	profiles []DatasetProfile
	index    map[string]int
}

// NewRegistry validates the profiles and keeps their order. Names must be unique.
func NewRegistry(profiles []DatasetProfile) (*Registry, error) {
	if len(profiles) == 0 {
		return nil, errors.New("registry needs at least one dataset")
	}
	r := &Registry{
		profiles: make([]DatasetProfile, 0, len(profiles)),
		index:    make(map[string]int, len(profiles)),
	}
	for i, p := range profiles {
		if p.Name == "" {
			return nil, fmt.Errorf("dataset %d has no name", i)
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("duplicate dataset %q", p.Name)
		}
		if len(p.InputFeatures) == 0 {
			return nil, fmt.Errorf("dataset %q has no input features", p.Name)
		}
		r.index[p.Name] = len(r.profiles)
		r.profiles = append(r.profiles, p.clone())
	}
	return r, nil
}

// RegistryFromConfig resolves artifact and sample paths against the
// configured directories.
func RegistryFromConfig(c *config.Config) (*Registry, error) {
	profiles := make([]DatasetProfile, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		profiles = append(profiles, DatasetProfile{
			Name:           ds.Name,
			ModelPath:      c.ModelPath(ds),
			SampleDataPath: c.SampleDataPath(ds),
			InputFeatures:  ds.InputColumns,
			ClassLabels:    ds.SpeciesLabels,
		})
	}
	return NewRegistry(profiles)
}

// Names lists dataset names in configuration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.profiles))
	for i, p := range r.profiles {
		names[i] = p.Name
	}
	return names
}

// Profile returns a copy of the named profile.
func (r *Registry) Profile(name string) (DatasetProfile, error) {
	i, ok := r.index[name]
	if !ok {
		return DatasetProfile{}, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	return r.profiles[i].clone(), nil
}

// First is the default selection.
func (r *Registry) First() DatasetProfile {
	return r.profiles[0].clone()
}

// Len is the number of profiles.
func (r *Registry) Len() int {
	return len(r.profiles)
}
