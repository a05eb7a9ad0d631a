package ontology

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotOrdering(t *testing.T) {
	c, sysID, subID, compID := buildLinac(t)

	snap := c.Snapshot()
	require.Len(t, snap.Entities, 3)
	require.Len(t, snap.Relationships, 2)

	// entities ordered by creation: system, subsystem, component
	assert.Equal(t, sysID, snap.Entities[0].ID)
	assert.Equal(t, subID, snap.Entities[1].ID)
	assert.Equal(t, compID, snap.Entities[2].ID)
}

func TestSnapshotIncludesRemoved(t *testing.T) {
	c, _, subID, _ := buildLinac(t)
	require.NoError(t, c.RemoveEntity(subID, "expert-1", "rejected by review"))

	snap := c.Snapshot()
	var found bool
	for _, e := range snap.Entities {
		if e.ID == subID {
			found = true
			assert.True(t, e.Removed)
		}
	}
	assert.True(t, found, "removed entities stay in the export dump")
}

func TestRestoreRoundTrip(t *testing.T) {
	c, sysID, subID, compID := buildLinac(t)

	_, err := c.Transition(subID, ActionReopen, "expert-1", "queued")
	require.NoError(t, err)
	_, err = c.Transition(subID, ActionApprove, "expert-1", "verified")
	require.NoError(t, err)

	snap := c.Snapshot()

	restored := New(Options{})
	require.NoError(t, restored.Restore(snap))

	for _, id := range []string{sysID, subID, compID} {
		_, err := restored.Entity(id)
		assert.NoError(t, err, "entity %s should survive the round trip", id)
	}

	// audit trail and status survive
	e, err := restored.Entity(subID)
	require.NoError(t, err)
	assert.Equal(t, StatusExpertApproved, e.Meta.Status)
	assert.Len(t, e.Meta.Reviews, 2)

	// graphs agree
	assert.Equal(t, c.Statistics(), restored.Statistics())
}

func TestRestoreReplaysInvariants(t *testing.T) {
	c, _, subID, _ := buildLinac(t)
	snap := c.Snapshot()

	// corrupt the snapshot: point the subsystem at a missing parent
	for _, e := range snap.Entities {
		if e.ID == subID {
			e.ParentID = "EN-missing"
		}
	}

	restored := New(Options{})
	err := restored.Restore(snap)
	require.Error(t, err)
}

func TestRestoreRequiresEmptyContainer(t *testing.T) {
	c, _, _, _ := buildLinac(t)
	snap := c.Snapshot()

	err := c.Restore(snap)
	require.Error(t, err)
}

func TestRestoreOrdersParentsFirst(t *testing.T) {
	c, _, _, _ := buildLinac(t)
	snap := c.Snapshot()

	// shuffle: children before parents
	snap.Entities[0], snap.Entities[2] = snap.Entities[2], snap.Entities[0]

	restored := New(Options{})
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, 3, restored.Statistics().TotalEntities)
}
