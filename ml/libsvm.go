package ml

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// maxFeatureIndex bounds the sparse indexes of a support vector.
const maxFeatureIndex = 1 << 16

// LibSVM is a support vector classifier read from a LIBSVM text model
// ("svm-train" output). Feature i of the input row maps to LIBSVM index i+1.
type LibSVM struct {
	svmType    string
	kernelType string
	degree     float64
	gamma      float64
	coef0      float64

	labels []int
	rho    []float64
	nSV    []int
	start  []int

	// svCoef[k][i] is the k-th dual coefficient of support vector i.
	svCoef [][]float64
	sv     [][]float64
	svNorm []float64
}

// ReadLibSVM parses a LIBSVM model. Only classification models (c_svc,
// nu_svc) with a built-in kernel are accepted.
func ReadLibSVM(r io.Reader) (*LibSVM, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	m := &LibSVM{degree: 3}
	nrClass, totalSV := 0, -1
	line := 0
	for {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, errors.New("missing SV section")
		}
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "SV" {
			break
		}
		if err := m.readHeader(fields, &nrClass, &totalSV); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	if err := m.checkHeader(nrClass, totalSV); err != nil {
		return nil, err
	}

	m.svCoef = make([][]float64, nrClass-1)
	for k := range m.svCoef {
		m.svCoef[k] = make([]float64, totalSV)
	}
	m.sv = make([][]float64, 0, totalSV)
	for len(m.sv) < totalSV {
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return nil, err
			}
			return nil, fmt.Errorf("expected %d support vectors, got %d", totalSV, len(m.sv))
		}
		line++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if err := m.readSupportVector(fields, nrClass); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
	}

	m.svNorm = make([]float64, len(m.sv))
	for i, v := range m.sv {
		m.svNorm[i] = floats.Dot(v, v)
	}
	m.start = make([]int, nrClass)
	for i := 1; i < nrClass; i++ {
		m.start[i] = m.start[i-1] + m.nSV[i-1]
	}
	return m, nil
}

func (m *LibSVM) readHeader(fields []string, nrClass, totalSV *int) error {
	key, values := fields[0], fields[1:]
	var err error
	switch key {
	case "svm_type":
		m.svmType, err = single(key, values)
	case "kernel_type":
		m.kernelType, err = single(key, values)
	case "degree":
		m.degree, err = singleFloat(key, values)
	case "gamma":
		m.gamma, err = singleFloat(key, values)
	case "coef0":
		m.coef0, err = singleFloat(key, values)
	case "nr_class":
		var v float64
		v, err = singleFloat(key, values)
		*nrClass = int(v)
	case "total_sv":
		var v float64
		v, err = singleFloat(key, values)
		*totalSV = int(v)
	case "rho":
		m.rho, err = parseFloats(values)
	case "label":
		m.labels, err = parseInts(values)
	case "nr_sv":
		m.nSV, err = parseInts(values)
	case "probA", "probB":
		// probability estimates are not used for a single label
	default:
		return fmt.Errorf("unknown header %q", key)
	}
	return err
}

func (m *LibSVM) checkHeader(nrClass, totalSV int) error {
	switch m.svmType {
	case "c_svc", "nu_svc":
	case "":
		return errors.New("missing svm_type")
	default:
		return fmt.Errorf("svm_type %s is not a classifier", m.svmType)
	}
	switch m.kernelType {
	case "linear", "polynomial", "rbf", "sigmoid":
	case "":
		return errors.New("missing kernel_type")
	default:
		return fmt.Errorf("unsupported kernel_type %s", m.kernelType)
	}
	if nrClass < 2 {
		return fmt.Errorf("nr_class %d, need at least 2", nrClass)
	}
	if totalSV <= 0 {
		return errors.New("missing total_sv")
	}
	if len(m.labels) != nrClass {
		return fmt.Errorf("label has %d entries, want %d", len(m.labels), nrClass)
	}
	if len(m.nSV) != nrClass {
		return fmt.Errorf("nr_sv has %d entries, want %d", len(m.nSV), nrClass)
	}
	if want := nrClass * (nrClass - 1) / 2; len(m.rho) != want {
		return fmt.Errorf("rho has %d entries, want %d", len(m.rho), want)
	}
	sum := 0
	for _, n := range m.nSV {
		sum += n
	}
	if sum != totalSV {
		return fmt.Errorf("nr_sv sums to %d, total_sv is %d", sum, totalSV)
	}
	return nil
}

func (m *LibSVM) readSupportVector(fields []string, nrClass int) error {
	if len(fields) < nrClass-1 {
		return fmt.Errorf("support vector has %d coefficients, want %d", len(fields), nrClass-1)
	}
	i := len(m.sv)
	for k := 0; k < nrClass-1; k++ {
		v, err := strconv.ParseFloat(fields[k], 64)
		if err != nil {
			return fmt.Errorf("coefficient %q: %w", fields[k], err)
		}
		m.svCoef[k][i] = v
	}

	var vec []float64
	for _, node := range fields[nrClass-1:] {
		idxStr, valStr, ok := strings.Cut(node, ":")
		if !ok {
			return fmt.Errorf("malformed node %q", node)
		}
		idx, err := strconv.Atoi(idxStr)
		if err != nil || idx < 1 || idx > maxFeatureIndex {
			return fmt.Errorf("bad feature index %q", idxStr)
		}
		val, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			return fmt.Errorf("bad feature value %q: %w", valStr, err)
		}
		for len(vec) < idx {
			vec = append(vec, 0)
		}
		vec[idx-1] = val
	}
	m.sv = append(m.sv, vec)
	return nil
}

// Predict runs one-vs-one voting and returns the winning class label.
func (m *LibSVM) Predict(features []float64) (ClassOutput, error) {
	if len(features) == 0 {
		return ClassOutput{}, errors.New("empty feature row")
	}
	xNorm := floats.Dot(features, features)
	kvalue := make([]float64, len(m.sv))
	for i, sv := range m.sv {
		kvalue[i] = m.kernel(features, xNorm, sv, m.svNorm[i])
	}

	nrClass := len(m.labels)
	votes := make([]int, nrClass)
	p := 0
	for i := 0; i < nrClass; i++ {
		for j := i + 1; j < nrClass; j++ {
			si, sj := m.start[i], m.start[j]
			ci, cj := m.nSV[i], m.nSV[j]
			coef1, coef2 := m.svCoef[j-1], m.svCoef[i]
			sum := 0.0
			for k := 0; k < ci; k++ {
				sum += coef1[si+k] * kvalue[si+k]
			}
			for k := 0; k < cj; k++ {
				sum += coef2[sj+k] * kvalue[sj+k]
			}
			sum -= m.rho[p]
			if sum > 0 {
				votes[i]++
			} else {
				votes[j]++
			}
			p++
		}
	}

	best := 0
	for i := 1; i < nrClass; i++ {
		if votes[i] > votes[best] {
			best = i
		}
	}
	return Index(m.labels[best]), nil
}

func (m *LibSVM) kernel(x []float64, xNorm float64, sv []float64, svNorm float64) float64 {
	n := len(x)
	if len(sv) < n {
		n = len(sv)
	}
	dot := floats.Dot(x[:n], sv[:n])
	switch m.kernelType {
	case "polynomial":
		return math.Pow(m.gamma*dot+m.coef0, m.degree)
	case "rbf":
		return math.Exp(-m.gamma * (xNorm + svNorm - 2*dot))
	case "sigmoid":
		return math.Tanh(m.gamma*dot + m.coef0)
	default:
		return dot
	}
}

func single(key string, values []string) (string, error) {
	if len(values) != 1 {
		return "", fmt.Errorf("%s expects one value", key)
	}
	return values[0], nil
}

func singleFloat(key string, values []string) (float64, error) {
	s, err := single(key, values)
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(s, 64)
}

func parseFloats(values []string) ([]float64, error) {
	out := make([]float64, len(values))
	for i, s := range values {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseInts(values []string) ([]int, error) {
	out := make([]int, len(values))
	for i, s := range values {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
