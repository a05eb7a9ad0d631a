package config

import (
	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options.
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "ontoforge.db")

	// Container defaults
	v.SetDefault("ontology.auto_create_inverse", false) // validator suggests instead

	// Builder identity-resolution defaults
	v.SetDefault("builder.exact_match_threshold", 0.85)
	v.SetDefault("builder.fuzzy_match_threshold", 0.6)
	v.SetDefault("builder.review_floor", 0.7)
	v.SetDefault("builder.override_margin", 0.1)

	// Validator scoring defaults
	v.SetDefault("validator.error_weight", 10.0)
	v.SetDefault("validator.warning_weight", 2.0)
	v.SetDefault("validator.low_confidence_weight", 10.0)
	v.SetDefault("validator.confidence_floor", 0.7)
	v.SetDefault("validator.min_label_length", 3)
	v.SetDefault("validator.expected_subsystems", map[string][]string{
		"linac": {
			"beam_delivery",
			"patient_positioning",
			"treatment_control",
			"safety_interlock",
			"cooling",
		},
	})

	// Watch defaults
	v.SetDefault("watch.dir", "batches")
	v.SetDefault("watch.debounce_ms", 500) // batch files arrive in bursts
}
