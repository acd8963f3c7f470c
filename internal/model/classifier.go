// Package model loads the pre-trained delivery-timeliness classifier and its
// training-time feature schema. Both are loaded once at process start and are
// immutable afterwards.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/topmanlogistics/etaserve/internal/encoding"
)

// Label is the classifier's binary delivery-timeliness verdict.
type Label string

const (
	// LabelOnTime means the shipment is predicted to arrive on time.
	LabelOnTime Label = "On Time"
	// LabelLate means the shipment is predicted to arrive late.
	LabelLate Label = "Late"
)

// Classifier errors.
var (
	ErrEmptyModel     = errors.New("model artifact has no coefficients")
	ErrEmptySchema    = errors.New("feature schema has no columns")
	ErrVectorMismatch = errors.New("vector length does not match trained coefficients")
)

// artifact is the on-disk JSON form of the trained model parameters.
type artifact struct {
	ModelType    string    `json:"model_type"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// Classifier is a stateless binary classifier over encoded feature vectors.
// Classify is a pure function of the trained parameters and its input, and is
// safe for concurrent use.
type Classifier struct {
	coefficients []float64
	intercept    float64
}

// Load reads trained model parameters from a JSON artifact file.
func Load(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact %s: %w", path, err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	if len(a.Coefficients) == 0 {
		return nil, ErrEmptyModel
	}

	return &Classifier{
		coefficients: a.Coefficients,
		intercept:    a.Intercept,
	}, nil
}

// LoadFeatureNames reads the ordered expected-column list the model was
// trained against. The classifier's coefficients are positionally bound to
// this order.
func LoadFeatureNames(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read feature schema %s: %w", path, err)
	}

	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return nil, fmt.Errorf("failed to parse feature schema %s: %w", path, err)
	}
	if len(names) == 0 {
		return nil, ErrEmptySchema
	}
	return names, nil
}

// NumFeatures returns the number of coefficients the classifier expects.
func (c *Classifier) NumFeatures() int {
	return len(c.coefficients)
}

// Classify scores the vector and maps the binary outcome to a label. The
// positive class (score >= 0, probability >= 0.5) is "On Time"; everything
// else is "Late".
func (c *Classifier) Classify(vector encoding.Vector) (Label, error) {
	if len(vector) != len(c.coefficients) {
		return "", fmt.Errorf("%w: got %d, want %d", ErrVectorMismatch, len(vector), len(c.coefficients))
	}

	score := c.intercept
	for i, w := range c.coefficients {
		score += w * vector[i]
	}

	if score >= 0 {
		return LabelOnTime, nil
	}
	return LabelLate, nil
}
