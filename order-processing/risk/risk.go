// Package risk scores the likelihood that an assigned order finishes late.
package risk

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
)

const (
	// NeutralRisk is reported when no predictor answer is available
	NeutralRisk = 0.5
	// DelayedThreshold marks an order as likely delayed
	DelayedThreshold = 0.5
)

// FeatureNames is the canonical feature order
var FeatureNames = []string{
	"quantity",
	"priority",
	"time_hours",
	"has_deadline",
	"staff_workload",
	"num_tasks",
	"num_candidates",
	"channel",
}

// Features describe an assigned order
type Features struct {
	Quantity        float64 `json:"quantity"`
	PriorityOrdinal float64 `json:"priorityOrdinal"`
	TotalHours      float64 `json:"totalHours"`
	HasDeadline     float64 `json:"hasDeadline"`
	StaffWorkload   float64 `json:"staffWorkload"`
	TaskCount       float64 `json:"taskCount"`
	CandidateCount  float64 `json:"candidateCount"`
	ChannelOrdinal  float64 `json:"channelOrdinal"`
}

func (f Features) byName() map[string]float64 {
	return map[string]float64{
		"quantity":       f.Quantity,
		"priority":       f.PriorityOrdinal,
		"time_hours":     f.TotalHours,
		"has_deadline":   f.HasDeadline,
		"staff_workload": f.StaffWorkload,
		"num_tasks":      f.TaskCount,
		"num_candidates": f.CandidateCount,
		"channel":        f.ChannelOrdinal,
	}
}

// Assessment is a risk score in [0,1]
type Assessment struct {
	Risk    float64 `json:"risk"`
	Delayed bool    `json:"delayed"`
}

// Neutral is the fallback assessment
func Neutral() Assessment {
	return Assessment{Risk: NeutralRisk, Delayed: NeutralRisk >= DelayedThreshold}
}

// Predictor scores features
type Predictor interface {
	Predict(ctx context.Context, f Features) (Assessment, error)
}

// LogisticModel is a standardised logistic regression exported as JSON
type LogisticModel struct {
	Type        string    `json:"type"`
	Features    []string  `json:"features"`
	Coef        []float64 `json:"coef"`
	Intercept   float64   `json:"intercept"`
	ScalerMean  []float64 `json:"scaler_mean"`
	ScalerScale []float64 `json:"scaler_scale"`
}

// DefaultModel returns hand-set weights used when no trained model is configured
func DefaultModel() *LogisticModel {
	n := len(FeatureNames)
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	return &LogisticModel{
		Type:        "logistic_regression",
		Features:    append([]string(nil), FeatureNames...),
		Coef:        []float64{0.015, 0.3, 0.4, 0.2, 0.25, 0.1, -0.5, 0.0},
		Intercept:   -2.0,
		ScalerMean:  make([]float64, n),
		ScalerScale: scale,
	}
}

// LoadModel reads a model file. An empty path yields DefaultModel.
func LoadModel(path string) (*LogisticModel, error) {
	if path == "" {
		return DefaultModel(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read risk model: %w", err)
	}
	var m LogisticModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode risk model %s: %w", path, err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid risk model %s: %w", path, err)
	}
	return &m, nil
}

// Validate checks the model's vectors line up with its feature list
func (m *LogisticModel) Validate() error {
	if m.Type != "" && m.Type != "logistic_regression" {
		return fmt.Errorf("unsupported model type %q", m.Type)
	}
	n := len(m.Features)
	if n == 0 {
		return fmt.Errorf("model has no features")
	}
	if len(m.Coef) != n || len(m.ScalerMean) != n || len(m.ScalerScale) != n {
		return fmt.Errorf("expected %d coefficients and scaler entries, got coef=%d mean=%d scale=%d",
			n, len(m.Coef), len(m.ScalerMean), len(m.ScalerScale))
	}
	known := Features{}.byName()
	for _, name := range m.Features {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown feature %q", name)
		}
	}
	return nil
}

// Predict applies the standardised logistic function. It is pure apart from
// honouring ctx cancellation.
func (m *LogisticModel) Predict(ctx context.Context, f Features) (Assessment, error) {
	if err := ctx.Err(); err != nil {
		return Assessment{}, err
	}
	values := f.byName()
	z := m.Intercept
	for i, name := range m.Features {
		scale := m.ScalerScale[i]
		if scale == 0 {
			scale = 1
		}
		z += m.Coef[i] * (values[name] - m.ScalerMean[i]) / scale
	}
	p := 1 / (1 + math.Exp(-z))
	p = math.Round(p*1e4) / 1e4
	return Assessment{Risk: p, Delayed: p >= DelayedThreshold}, nil
}
