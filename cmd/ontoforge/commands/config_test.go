package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseValue(t *testing.T) {
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, int64(500), parseValue("500"))
	assert.Equal(t, 0.65, parseValue("0.65"))
	assert.Equal(t, "/data/ontology.db", parseValue("/data/ontology.db"))
}
