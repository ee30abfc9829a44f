package workflow

import (
	"svmpredict/dataset"
)

// Feature is one named input value.
type Feature struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// FeatureVector is one row of named inputs in the profile's declared order.
type FeatureVector struct {
	features []Feature
}

// Len is the number of features.
func (v FeatureVector) Len() int {
	return len(v.features)
}

func (v FeatureVector) Features() []Feature {
	return append([]Feature(nil), v.features...)
}

func (v FeatureVector) Names() []string {
	names := make([]string, len(v.features))
	for i, f := range v.features {
		names[i] = f.Name
	}
	return names
}

// Values is the row handed to the classifier.
func (v FeatureVector) Values() []float64 {
	values := make([]float64, len(v.features))
	for i, f := range v.features {
		values[i] = f.Value
	}
	return values
}

// Get looks a value up by feature name.
func (v FeatureVector) Get(name string) (float64, bool) {
	for _, f := range v.features {
		if f.Name == name {
			return f.Value, true
		}
	}
	return 0, false
}

// CollectFeatureVector takes, for every input feature, the override if
// present, else the first sample row's value when that column exists, else
// 0. Cells that do not parse as numbers count as missing.
func CollectFeatureVector(profile DatasetProfile, table *dataset.Table, overrides map[string]float64) FeatureVector {
	features := make([]Feature, len(profile.InputFeatures))
	for i, name := range profile.InputFeatures {
		features[i] = Feature{Name: name, Value: defaultValue(table, name)}
		if v, ok := overrides[name]; ok {
			features[i].Value = v
		}
	}
	return FeatureVector{features: features}
}

func defaultValue(table *dataset.Table, column string) float64 {
	if table.Len() == 0 || !table.Has(column) {
		return 0
	}
	v, err := table.Float(0, column)
	if err != nil {
		return 0
	}
	return v
}
