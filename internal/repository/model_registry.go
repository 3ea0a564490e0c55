package repository

import (
	"fmt"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"SignalForge/internal/domain/models"
	"SignalForge/pkg/config"
)

// ModelEntry describes one registered predictor.
type ModelEntry struct {
	Name       string          `yaml:"name" validate:"required,oneof=statistical trees neural advisory"`
	Enabled    *bool           `yaml:"enabled"`
	Schema     string          `yaml:"schema" default:"scalper_core_v1" validate:"required"`
	BaseWeight float64         `yaml:"base_weight" default:"1" validate:"gt=0"`
	Timeout    config.Duration `yaml:"timeout"`
	// Regimes lists where the model was validated. Empty means all regimes;
	// outside the list the ensemble down-weights its votes.
	Regimes []string `yaml:"regimes" validate:"dive,oneof=undetermined trending ranging high_volatility illiquid"`
	// BaseURL only applies to the advisory model.
	BaseURL string `yaml:"base_url" validate:"omitempty,url"`
}

// IsEnabled defaults to true when the field is omitted.
func (e *ModelEntry) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// RegimeLabels converts the declared regime names to typed labels.
func (e *ModelEntry) RegimeLabels() []models.RegimeLabel {
	if len(e.Regimes) == 0 {
		return nil
	}
	out := make([]models.RegimeLabel, len(e.Regimes))
	for i, r := range e.Regimes {
		out[i] = models.RegimeLabel(r)
	}
	return out
}

// ModelRegistry is the yaml-backed list of models the ensemble runs.
// Loading rejects entries whose declared schema the feature builder does
// not emit, so an incompatible model never reaches a cycle.
type ModelRegistry struct {
	Models []ModelEntry `yaml:"models" validate:"required,min=1,dive"`
}

// LoadModelRegistry reads, defaults and validates the registry file against
// the builder's schema.
func LoadModelRegistry(path, builderSchema string) (*ModelRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model registry: %w", err)
	}

	var reg ModelRegistry
	if err := yaml.Unmarshal(raw, &reg); err != nil {
		return nil, fmt.Errorf("parse model registry: %w", err)
	}
	for i := range reg.Models {
		if err := defaults.Set(&reg.Models[i]); err != nil {
			return nil, fmt.Errorf("apply registry defaults: %w", err)
		}
	}
	if err := validator.New().Struct(&reg); err != nil {
		return nil, fmt.Errorf("validate model registry: %w", err)
	}

	seen := make(map[string]struct{}, len(reg.Models))
	for _, e := range reg.Models {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("duplicate model %q in registry", e.Name)
		}
		seen[e.Name] = struct{}{}
		if e.Schema != builderSchema {
			return nil, fmt.Errorf("%w: model %s declares schema %s, builder emits %s",
				models.ErrSchemaMismatch, e.Name, e.Schema, builderSchema)
		}
	}
	return &reg, nil
}

// Entry returns the registry entry for name.
func (r *ModelRegistry) Entry(name string) (*ModelEntry, bool) {
	for i := range r.Models {
		if r.Models[i].Name == name {
			return &r.Models[i], true
		}
	}
	return nil, false
}

// BaseWeights extracts the ensemble weight map for enabled models.
func (r *ModelRegistry) BaseWeights() map[string]float64 {
	out := make(map[string]float64, len(r.Models))
	for _, e := range r.Models {
		if e.IsEnabled() {
			out[e.Name] = e.BaseWeight
		}
	}
	return out
}
