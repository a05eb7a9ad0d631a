package config

import (
	"github.com/silvamed/ontoforge/errors"
	"github.com/silvamed/ontoforge/ontology"
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}

	if err := c.Thresholds().Validate(); err != nil {
		return errors.Wrap(err, "builder configuration")
	}

	for name, v := range map[string]float64{
		"validator.error_weight":          c.Validator.ErrorWeight,
		"validator.warning_weight":        c.Validator.WarningWeight,
		"validator.low_confidence_weight": c.Validator.LowConfidenceWeight,
	} {
		if v < 0 {
			return errors.Newf("%s must not be negative, got %f", name, v)
		}
	}
	if c.Validator.ConfidenceFloor < 0 || c.Validator.ConfidenceFloor > 1 {
		return errors.Newf("validator.confidence_floor must be in [0,1], got %f",
			c.Validator.ConfidenceFloor)
	}
	if c.Validator.MinLabelLength < 1 {
		return errors.Newf("validator.min_label_length must be at least 1, got %d",
			c.Validator.MinLabelLength)
	}

	for sys, subs := range c.Validator.ExpectedSubsystems {
		if !ontology.SystemType(sys).Valid() {
			return errors.Newf("validator.expected_subsystems: unknown system type %q", sys)
		}
		for _, sub := range subs {
			if !ontology.SubsystemType(sub).Valid() {
				return errors.Newf("validator.expected_subsystems.%s: unknown subsystem type %q", sys, sub)
			}
		}
	}

	if c.Watch.DebounceMs < 0 {
		return errors.Newf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMs)
	}
	return nil
}
