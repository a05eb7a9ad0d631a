package config

import (
	"github.com/silvamed/ontoforge/builder"
	"github.com/silvamed/ontoforge/ontology"
	"github.com/silvamed/ontoforge/validate"
)

// Config is the ontoforge configuration tree, bound from TOML files and
// ONTOFORGE_* environment variables.
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Ontology  OntologyConfig  `mapstructure:"ontology"`
	Builder   BuilderConfig   `mapstructure:"builder"`
	Validator ValidatorConfig `mapstructure:"validator"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// DatabaseConfig configures the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// OntologyConfig configures container behavior.
type OntologyConfig struct {
	// AutoCreateInverse makes the container create the inverse edge of
	// every non-containment relationship. Off by default: the validator
	// suggests inverses instead, so expert queues are not silently doubled.
	AutoCreateInverse bool `mapstructure:"auto_create_inverse"`
}

// BuilderConfig tunes identity resolution. The merge thresholds are
// configuration with stated defaults, not constants.
type BuilderConfig struct {
	ExactMatchThreshold float64 `mapstructure:"exact_match_threshold"` // default 0.85
	FuzzyMatchThreshold float64 `mapstructure:"fuzzy_match_threshold"` // default 0.6
	ReviewFloor         float64 `mapstructure:"review_floor"`          // default 0.7
	OverrideMargin      float64 `mapstructure:"override_margin"`       // default 0.1
}

// ValidatorConfig tunes scoring and the completeness checklist.
type ValidatorConfig struct {
	ErrorWeight         float64 `mapstructure:"error_weight"`
	WarningWeight       float64 `mapstructure:"warning_weight"`
	LowConfidenceWeight float64 `mapstructure:"low_confidence_weight"`
	ConfidenceFloor     float64 `mapstructure:"confidence_floor"`
	MinLabelLength      int     `mapstructure:"min_label_length"`
	// ExpectedSubsystems maps a system type to the subsystem types a
	// complete system of that type carries.
	ExpectedSubsystems map[string][]string `mapstructure:"expected_subsystems"`
}

// WatchConfig configures the batch drop directory watcher.
type WatchConfig struct {
	Dir        string `mapstructure:"dir"`
	DebounceMs int    `mapstructure:"debounce_ms"`
}

// Thresholds converts the builder section into builder tuning.
func (c *Config) Thresholds() builder.Thresholds {
	return builder.Thresholds{
		ExactMatch:     c.Builder.ExactMatchThreshold,
		FuzzyMatch:     c.Builder.FuzzyMatchThreshold,
		ReviewFloor:    c.Builder.ReviewFloor,
		OverrideMargin: c.Builder.OverrideMargin,
	}
}

// Weights converts the validator section into scoring weights.
func (c *Config) Weights() validate.Weights {
	return validate.Weights{
		Error:           c.Validator.ErrorWeight,
		Warning:         c.Validator.WarningWeight,
		LowConfidence:   c.Validator.LowConfidenceWeight,
		ConfidenceFloor: c.Validator.ConfidenceFloor,
		MinLabelLength:  c.Validator.MinLabelLength,
	}
}

// Checklist converts the expected-subsystem map into typed form. Unknown
// enum values are dropped here; Validate rejects them before this runs.
func (c *Config) Checklist() validate.Checklist {
	out := make(validate.Checklist, len(c.Validator.ExpectedSubsystems))
	for sys, subs := range c.Validator.ExpectedSubsystems {
		sysType := ontology.SystemType(sys)
		if !sysType.Valid() {
			continue
		}
		for _, sub := range subs {
			subType := ontology.SubsystemType(sub)
			if !subType.Valid() {
				continue
			}
			out[sysType] = append(out[sysType], subType)
		}
	}
	return out
}

// ContainerOptions converts the ontology section.
func (c *Config) ContainerOptions() ontology.Options {
	return ontology.Options{AutoCreateInverse: c.Ontology.AutoCreateInverse}
}
