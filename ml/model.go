package ml

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Classifier is a pre-trained model that scores one row of features.
type Classifier interface {
	Predict(features []float64) (ClassOutput, error)
}

// FeatureNamer is implemented by artifacts that record the feature order
// they were trained with.
type FeatureNamer interface {
	FeatureNames() []string
}

// OutputKind tells which field of a ClassOutput is set.
type OutputKind int

const (
	UnknownOutput OutputKind = iota
	IndexOutput
	LabelOutput
)

// ClassOutput is either an index into a label table or a self-describing
// label. The zero value is an unrecognised output.
type ClassOutput struct {
	kind  OutputKind
	index int
	label string
}

// Index is an output that selects a label by position.
func Index(i int) ClassOutput {
	return ClassOutput{kind: IndexOutput, index: i}
}

// Label is an output that already names its class.
func Label(s string) ClassOutput {
	return ClassOutput{kind: LabelOutput, label: s}
}

// Kind reports which variant o holds.
func (o ClassOutput) Kind() OutputKind {
	return o.kind
}

// Index returns the class index when o is an Index output.
func (o ClassOutput) Index() (int, bool) {
	return o.index, o.kind == IndexOutput
}

// Label returns the class name when o is a Label output.
func (o ClassOutput) Label() (string, bool) {
	return o.label, o.kind == LabelOutput
}

// String renders the index or label; the zero value is "Unknown".
func (o ClassOutput) String() string {
	switch o.kind {
	case IndexOutput:
		return strconv.Itoa(o.index)
	case LabelOutput:
		return o.label
	default:
		return "Unknown"
	}
}

// MarshalJSON renders indexes as numbers and labels as strings.
func (o ClassOutput) MarshalJSON() ([]byte, error) {
	switch o.kind {
	case IndexOutput:
		return []byte(strconv.Itoa(o.index)), nil
	case LabelOutput:
		return json.Marshal(o.label)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts what MarshalJSON writes: an integer, a string or null.
func (o *ClassOutput) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case nil:
		*o = ClassOutput{}
	case float64:
		if v != float64(int(v)) {
			return fmt.Errorf("class index %v is not an integer", v)
		}
		*o = Index(int(v))
	case string:
		*o = Label(v)
	default:
		return fmt.Errorf("class output must be a number or a string, got %s", data)
	}
	return nil
}
