package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase", "Beam Delivery", "beam delivery"},
		{"punctuation", "Multi-Leaf Collimator", "multi leaf collimator"},
		{"article prefix", "The Cooling System", "cooling"},
		{"generic suffix", "Klystron Assembly", "klystron"},
		{"whitespace collapse", "  beam   delivery  ", "beam delivery"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeLabel(tt.in))
		})
	}
}

func TestLabelSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{"identical", "Beam Delivery", "Beam Delivery", 1},
		{"case insensitive", "beam delivery", "BEAM DELIVERY", 1},
		{"punctuation variant", "Multi-Leaf Collimator", "Multi Leaf Collimator", 1},
		{"suffix stripped", "Cooling System", "Cooling", 1},
		{"no overlap", "Klystron", "Couch", 0},
		{"empty", "", "anything", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, labelSimilarity(tt.a, tt.b))
		})
	}

	// partial overlap lands between the fuzzy and exact thresholds
	s := labelSimilarity("Patient Positioning", "Patient Positioning Robotic Couch")
	assert.Greater(t, s, 0.6)
	assert.Less(t, s, 0.85)
}

func TestEntityCandidateNormalizeCanonicalizesEnums(t *testing.T) {
	c := EntityCandidate{
		Kind:       "Subsystem",
		Label:      "Beam Delivery",
		ParentHint: "S1",
		Confidence: 0.9,
	}
	assert.Empty(t, c.normalize())
	assert.Equal(t, "subsystem", string(c.Kind))
	// type inferred from the label keyword
	assert.Equal(t, "beam_delivery", string(c.Subsystem.SubsystemType))
}
