package classifier

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"bczsl/internal/artifact"
	"bczsl/internal/domain"
)

// Artifacts are written in a compact protobuf wire layout unless the path ends
// in .json, in which case a readable JSON document is used.

const (
	modelMagic   = "bczsl.logreg"
	encoderMagic = "bczsl.label_encoder"
	codecVersion = 1
)

const (
	fieldMagic   protowire.Number = 1
	fieldVersion protowire.Number = 2
	fieldK       protowire.Number = 3
	fieldD       protowire.Number = 4
	fieldWeights protowire.Number = 5
	fieldBias    protowire.Number = 6

	fieldClasses protowire.Number = 3
)

type modelJSON struct {
	Format  string      `json:"format"`
	Version int         `json:"version"`
	Weights [][]float64 `json:"weights"`
	Bias    []float64   `json:"bias"`
}

type encoderJSON struct {
	Format  string   `json:"format"`
	Version int      `json:"version"`
	Classes []string `json:"classes"`
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

func readArtifact(path, what string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s %s: %w", what, path, domain.ErrMissingArtifact)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s %s: %w", what, path, err)
	}
	return data, nil
}

// SaveModel persists m at path.
func SaveModel(path string, m *Model) error {
	if m.Classes() == 0 {
		return fmt.Errorf("save model: %w", domain.ErrNotFitted)
	}
	var data []byte
	if isJSON(path) {
		var err error
		data, err = json.MarshalIndent(modelJSON{
			Format: modelMagic, Version: codecVersion,
			Weights: m.Weights(), Bias: m.Bias(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("save model: %w", err)
		}
	} else {
		data = MarshalModel(m)
	}
	if err := artifact.WriteFile(path, data); err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

// LoadModel reads a model written by SaveModel.
func LoadModel(path string) (*Model, error) {
	data, err := readArtifact(path, "model")
	if err != nil {
		return nil, err
	}
	if isJSON(path) {
		var doc modelJSON
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		if doc.Format != modelMagic {
			return nil, fmt.Errorf("load model %s: unexpected format %q", path, doc.Format)
		}
		return NewModel(doc.Weights, doc.Bias)
	}
	m, err := UnmarshalModel(data)
	if err != nil {
		return nil, fmt.Errorf("load model %s: %w", path, err)
	}
	return m, nil
}

// MarshalModel encodes m in the binary layout.
func MarshalModel(m *Model) []byte {
	k, d := m.Classes(), m.Dim()
	var b []byte
	b = protowire.AppendTag(b, fieldMagic, protowire.BytesType)
	b = protowire.AppendString(b, modelMagic)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, codecVersion)
	b = protowire.AppendTag(b, fieldK, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(k))
	b = protowire.AppendTag(b, fieldD, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(d))

	packed := make([]byte, 0, 8*k*d)
	for c := 0; c < k; c++ {
		for _, w := range m.weights.RawRowView(c) {
			packed = protowire.AppendFixed64(packed, math.Float64bits(w))
		}
	}
	b = protowire.AppendTag(b, fieldWeights, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)

	packed = packed[:0]
	for _, v := range m.bias {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, fieldBias, protowire.BytesType)
	b = protowire.AppendBytes(b, packed)
	return b
}

// UnmarshalModel decodes the binary layout produced by MarshalModel.
func UnmarshalModel(b []byte) (*Model, error) {
	var (
		magic   string
		k, d    uint64
		weights []float64
		bias    []float64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case num == fieldMagic && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			magic, b = v, b[n:]
		case (num == fieldVersion || num == fieldK || num == fieldD) && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case fieldVersion:
				if v != codecVersion {
					return nil, fmt.Errorf("unsupported model version %d", v)
				}
			case fieldK:
				k = v
			case fieldD:
				d = v
			}
		case (num == fieldWeights || num == fieldBias) && typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			vals, err := unpackFloats(v)
			if err != nil {
				return nil, err
			}
			if num == fieldWeights {
				weights = vals
			} else {
				bias = vals
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if magic != modelMagic {
		return nil, fmt.Errorf("not a model artifact (magic %q)", magic)
	}
	if k < 2 {
		return nil, fmt.Errorf("model header declares %d classes: %w", k, domain.ErrInsufficientClasses)
	}
	if d == 0 {
		return nil, fmt.Errorf("model header declares zero-width weights: %w", domain.ErrNotFitted)
	}
	// Bias and weights are bounded by the input size, so checking against
	// them keeps k and d from driving the allocation below.
	if uint64(len(bias)) != k {
		return nil, fmt.Errorf("model header declares %d classes but %d biases are stored: %w",
			k, len(bias), domain.ErrShapeMismatch)
	}
	if n := uint64(len(weights)); n%k != 0 || n/k != d {
		return nil, fmt.Errorf("model header declares %dx%d weights but %d are stored: %w",
			k, d, len(weights), domain.ErrShapeMismatch)
	}
	rows := make([][]float64, k)
	for c := range rows {
		rows[c] = weights[uint64(c)*d : uint64(c+1)*d]
	}
	return NewModel(rows, bias)
}

func unpackFloats(b []byte) ([]float64, error) {
	if len(b)%8 != 0 {
		return nil, fmt.Errorf("packed float64 field has %d bytes", len(b))
	}
	out := make([]float64, 0, len(b)/8)
	for len(b) > 0 {
		v, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, math.Float64frombits(v))
		b = b[n:]
	}
	return out, nil
}

// SaveEncoder persists e at path.
func SaveEncoder(path string, e *LabelEncoder) error {
	var data []byte
	if isJSON(path) {
		var err error
		data, err = json.MarshalIndent(encoderJSON{
			Format: encoderMagic, Version: codecVersion, Classes: e.Classes(),
		}, "", "  ")
		if err != nil {
			return fmt.Errorf("save encoder: %w", err)
		}
	} else {
		data = MarshalEncoder(e)
	}
	if err := artifact.WriteFile(path, data); err != nil {
		return fmt.Errorf("save encoder: %w", err)
	}
	return nil
}

// LoadEncoder reads an encoder written by SaveEncoder.
func LoadEncoder(path string) (*LabelEncoder, error) {
	data, err := readArtifact(path, "label encoder")
	if err != nil {
		return nil, err
	}
	if isJSON(path) {
		var doc encoderJSON
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("load encoder %s: %w", path, err)
		}
		if doc.Format != encoderMagic {
			return nil, fmt.Errorf("load encoder %s: unexpected format %q", path, doc.Format)
		}
		return NewLabelEncoder(doc.Classes)
	}
	e, err := UnmarshalEncoder(data)
	if err != nil {
		return nil, fmt.Errorf("load encoder %s: %w", path, err)
	}
	return e, nil
}

// MarshalEncoder encodes e in the binary layout.
func MarshalEncoder(e *LabelEncoder) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldMagic, protowire.BytesType)
	b = protowire.AppendString(b, encoderMagic)
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, codecVersion)
	for _, c := range e.classes {
		b = protowire.AppendTag(b, fieldClasses, protowire.BytesType)
		b = protowire.AppendString(b, c)
	}
	return b
}

// UnmarshalEncoder decodes the binary layout produced by MarshalEncoder.
func UnmarshalEncoder(b []byte) (*LabelEncoder, error) {
	var (
		magic   string
		classes []string
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case (num == fieldMagic || num == fieldClasses) && typ == protowire.BytesType:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			if num == fieldMagic {
				magic = v
			} else {
				classes = append(classes, v)
			}
		case num == fieldVersion && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
			if v != codecVersion {
				return nil, fmt.Errorf("unsupported encoder version %d", v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	if magic != encoderMagic {
		return nil, fmt.Errorf("not a label encoder artifact (magic %q)", magic)
	}
	return NewLabelEncoder(classes)
}
