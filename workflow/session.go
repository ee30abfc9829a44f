package workflow

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"svmpredict/dataset"
	"svmpredict/ml"
)

// State is a step of the session lifecycle.
type State string

const (
	StateIdle             State = "idle"
	StateDatasetSelected  State = "dataset_selected"
	StateModelLoading     State = "model_loading"
	StateModelReady       State = "model_ready"
	StateModelLoadFailed  State = "model_load_failed"
	StateAwaitingInput    State = "awaiting_input"
	StatePredicting       State = "predicting"
	StateResultShown      State = "result_shown"
	StatePredictionFailed State = "prediction_failed"
)

// Level is the severity of a Notice.
type Level string

const (
	LevelSuccess Level = "success"
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is one user-facing status message.
type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// PreviewRows caps the sample rows carried in a View.
const PreviewRows = 20

var (
	ErrNoDataset      = errors.New("no dataset selected")
	ErrUnknownFeature = errors.New("unknown feature")
)

// Session is one user's walk through the workflow. It is not safe for
// concurrent use.
type Session struct {
	wf *Workflow

	state      State
	profile    DatasetProfile
	classifier ml.Classifier
	table      *dataset.Table
	defaults   FeatureVector
	inputs     map[string]float64

	loadNotices []Notice
	lastNotices []Notice
	result      *PredictionResult
}

func newSession(wf *Workflow) *Session {
	return &Session{
		wf:     wf,
		state:  StateIdle,
		table:  dataset.Empty(),
		inputs: map[string]float64{},
	}
}

// State returns the current state.
func (s *Session) State() State {
	return s.state
}

// Profile returns the selected dataset, or the zero profile before Select.
func (s *Session) Profile() DatasetProfile {
	return s.profile
}

// Select switches to the named dataset and runs the load sequence: model
// first, then sample data. Only an unknown name is returned as an error;
// load failures end in StateModelLoadFailed with an error notice.
func (s *Session) Select(name string) error {
	profile, err := s.wf.GetProfile(name)
	if err != nil {
		return err
	}

	s.profile = profile
	s.classifier = nil
	s.table = dataset.Empty()
	s.defaults = FeatureVector{}
	s.inputs = map[string]float64{}
	s.loadNotices = nil
	s.lastNotices = nil
	s.result = nil
	s.transition(StateDatasetSelected)

	s.transition(StateModelLoading)
	clf, err := s.wf.LoadClassifier(profile)
	if err != nil {
		s.transition(StateModelLoadFailed)
		s.notify(&s.loadNotices, LevelError, "Model failed to load: "+cause(err))
		return nil
	}
	s.classifier = clf
	s.transition(StateModelReady)
	s.notify(&s.loadNotices, LevelSuccess, "Model loaded")
	s.checkFeatureOrder()

	if profile.SampleDataPath == "" {
		s.notify(&s.loadNotices, LevelInfo, "No sample data configured; inputs default to 0")
	}
	table, err := s.wf.LoadSampleTable(profile)
	s.table = table
	if err != nil {
		var formatErr *dataset.FormatError
		if errors.As(err, &formatErr) {
			s.notify(&s.loadNotices, LevelError, "Unsupported sample data format")
		} else {
			s.notify(&s.loadNotices, LevelWarning, "Sample data unavailable: "+cause(err))
		}
	}
	s.defaults = CollectFeatureVector(profile, s.table, nil)
	s.transition(StateAwaitingInput)
	return nil
}

// The vector is always built in profile order; a differing artifact order
// is only reported.
func (s *Session) checkFeatureOrder() {
	namer, ok := s.classifier.(ml.FeatureNamer)
	if !ok {
		return
	}
	names := namer.FeatureNames()
	if len(names) == 0 || slices.Equal(names, s.profile.InputFeatures) {
		return
	}
	s.notify(&s.loadNotices, LevelWarning, fmt.Sprintf(
		"Model expects features %v but the form sends %v", names, s.profile.InputFeatures))
}

// SetInput overrides one feature value.
func (s *Session) SetInput(name string, value float64) error {
	switch s.state {
	case StateAwaitingInput, StateResultShown, StatePredictionFailed:
	case StateIdle:
		return ErrNoDataset
	default:
		return fmt.Errorf("cannot set input in state %s", s.state)
	}
	if !slices.Contains(s.profile.InputFeatures, name) {
		return fmt.Errorf("%w: %q", ErrUnknownFeature, name)
	}
	s.inputs[name] = value
	s.result = nil
	s.lastNotices = nil
	s.transition(StateAwaitingInput)
	return nil
}

// SetInputs applies several overrides. Nothing is applied if any name is
// unknown.
func (s *Session) SetInputs(values map[string]float64) error {
	for name := range values {
		if !slices.Contains(s.profile.InputFeatures, name) {
			return fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
	}
	for _, name := range s.profile.InputFeatures {
		if v, ok := values[name]; ok {
			if err := s.SetInput(name, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// Vector is the feature vector the next prediction would use.
func (s *Session) Vector() FeatureVector {
	return CollectFeatureVector(s.profile, s.table, s.inputs)
}

// Predict runs inference on the current inputs. Without a bound classifier
// the call is rejected and the state is left unchanged.
func (s *Session) Predict(ctx context.Context) (PredictionResult, error) {
	switch s.state {
	case StateAwaitingInput, StateResultShown, StatePredictionFailed:
	case StateIdle:
		return PredictionResult{}, ErrNoDataset
	default:
		return PredictionResult{}, &PredictionError{Err: ErrModelUnavailable}
	}
	if s.classifier == nil {
		return PredictionResult{}, &PredictionError{Err: ErrModelUnavailable}
	}

	s.transition(StatePredicting)
	s.lastNotices = nil
	s.result = nil
	result, err := s.wf.Predict(ctx, s.classifier, s.Vector(), s.profile)
	if err != nil {
		s.transition(StatePredictionFailed)
		s.notify(&s.lastNotices, LevelError, predictionMessage(err))
		return result, err
	}
	s.transition(StateResultShown)
	s.result = &result
	return result, nil
}

func (s *Session) transition(to State) {
	s.wf.logger.Debug("session state",
		zap.String("dataset", s.profile.Name),
		zap.String("from", string(s.state)),
		zap.String("to", string(to)))
	s.state = to
}

func (s *Session) notify(dst *[]Notice, level Level, message string) {
	*dst = append(*dst, Notice{Level: level, Message: message})
}

func predictionMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyInput):
		return "Prediction input is empty"
	case errors.Is(err, ErrIndexOutOfRange):
		return "Prediction result is outside the available label index"
	case errors.Is(err, ErrModelUnavailable):
		return "Model failed to load"
	default:
		return "Prediction failed: " + cause(err)
	}
}

// cause strips wrapping so notices show the innermost message.
func cause(err error) string {
	var loadErr *ml.LoadError
	if errors.As(err, &loadErr) && loadErr.Err != nil {
		return loadErr.Err.Error()
	}
	return err.Error()
}

// FieldView is one form input.
type FieldView struct {
	Name    string  `json:"name"`
	Default float64 `json:"default"`
	Value   float64 `json:"value"`
}

// SampleView is the preview of the sample table.
type SampleView struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
	Total   int        `json:"total"`
}

// View is a render snapshot of a session.
type View struct {
	State     State             `json:"state"`
	Datasets  []string          `json:"datasets"`
	Dataset   string            `json:"dataset,omitempty"`
	ModelPath string            `json:"model_path,omitempty"`
	Ready     bool              `json:"ready"`
	Notices   []Notice          `json:"notices"`
	Fields    []FieldView       `json:"fields,omitempty"`
	Sample    *SampleView       `json:"sample,omitempty"`
	Result    *PredictionResult `json:"result,omitempty"`
}

// View snapshots the session for rendering.
func (s *Session) View() View {
	v := View{
		State:    s.state,
		Datasets: s.wf.ListDatasetNames(),
		Notices:  append(append([]Notice{}, s.loadNotices...), s.lastNotices...),
	}
	if s.state == StateIdle {
		return v
	}
	v.Dataset = s.profile.Name
	v.ModelPath = s.profile.ModelPath
	v.Ready = s.classifier != nil
	if s.result != nil {
		r := *s.result
		v.Result = &r
	}
	if s.classifier == nil {
		return v
	}
	current := s.Vector()
	for _, f := range s.defaults.Features() {
		value, _ := current.Get(f.Name)
		v.Fields = append(v.Fields, FieldView{Name: f.Name, Default: f.Value, Value: value})
	}
	if s.table.Len() > 0 {
		v.Sample = &SampleView{
			Columns: s.table.Columns(),
			Rows:    s.table.Head(PreviewRows),
			Total:   s.table.Len(),
		}
	}
	return v
}
