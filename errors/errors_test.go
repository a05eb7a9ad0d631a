package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelWrapping(t *testing.T) {
	err := Wrap(ErrNotFound, "entity EN123")
	assert.True(t, IsNotFound(err))
	assert.False(t, IsDuplicateID(err))

	err = Wrapf(ErrDuplicateID, "entity %s already exists", "EN123")
	assert.True(t, IsDuplicateID(err))
	assert.Contains(t, err.Error(), "EN123")
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("relationship %s", "RE456")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "RE456")
}

func TestNewInvariantViolation(t *testing.T) {
	err := NewInvariantViolation("cycle through %s", "EN789")
	assert.True(t, IsInvariantViolation(err))
	assert.False(t, IsNotFound(err))
}

func TestNilSafety(t *testing.T) {
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsInvariantViolation(nil))
	assert.False(t, IsOrphanReference(nil))
}
