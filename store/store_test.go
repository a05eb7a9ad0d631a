package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forgetest "github.com/silvamed/ontoforge/internal/testing"
	"github.com/silvamed/ontoforge/ontology"
)

func seedContainer(t *testing.T) *ontology.Container {
	t.Helper()
	c := ontology.New(ontology.Options{})

	sysID, err := c.AddEntity(ontology.NewSystem("LINAC TrueBeam", ontology.SystemAttrs{
		SystemType:   ontology.SystemLinac,
		Manufacturer: "Varian",
		ModelNumber:  "TrueBeam",
	}))
	require.NoError(t, err)

	subID, err := c.AddEntity(ontology.NewSubsystem("Beam Delivery", sysID, ontology.SubsystemAttrs{
		SubsystemType: ontology.SubsystemBeamDelivery,
	}))
	require.NoError(t, err)

	compID, err := c.AddEntity(ontology.NewComponent("Magnetron", subID, ontology.ComponentAttrs{
		PartNumber: "MAG-100",
	}))
	require.NoError(t, err)

	_, err = c.AddRelationship(ontology.NewRelationship(ontology.RelConnectedTo, subID, compID))
	require.NoError(t, err)

	_, err = c.Transition(compID, ontology.ActionReopen, "expert@clinic", "queued for review")
	require.NoError(t, err)
	_, err = c.Transition(compID, ontology.ActionApprove, "expert@clinic", "verified against manual")
	require.NoError(t, err)

	return c
}

func TestSaveLoadRoundTrip(t *testing.T) {
	conn := forgetest.CreateTestDB(t)
	s := New(conn, nil)
	ctx := context.Background()

	c := seedContainer(t)
	snap := c.Snapshot()
	require.NoError(t, s.Save(ctx, snap))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Entities, len(snap.Entities))
	require.Len(t, loaded.Relationships, len(snap.Relationships))

	restored := ontology.New(ontology.Options{})
	require.NoError(t, restored.Restore(loaded))

	assert.Equal(t, c.Statistics(), restored.Statistics())

	for _, want := range snap.Entities {
		got, err := restored.Entity(want.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Label, got.Label)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.ParentID, got.ParentID)
		assert.Equal(t, want.Meta.Status, got.Meta.Status)
		assert.Equal(t, want.Meta.Tags, got.Meta.Tags)
		require.Len(t, got.Meta.Reviews, len(want.Meta.Reviews))
		for i, rec := range want.Meta.Reviews {
			assert.Equal(t, rec.ExpertID, got.Meta.Reviews[i].ExpertID)
			assert.Equal(t, rec.Action, got.Meta.Reviews[i].Action)
			assert.Equal(t, rec.Comment, got.Meta.Reviews[i].Comment)
		}
	}
}

func TestSaveReplacesPreviousSnapshot(t *testing.T) {
	conn := forgetest.CreateTestDB(t)
	s := New(conn, nil)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, seedContainer(t).Snapshot()))

	small := ontology.New(ontology.Options{})
	_, err := small.AddEntity(ontology.NewSystem("MRI Scanner", ontology.SystemAttrs{
		SystemType: ontology.SystemMRI,
	}))
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, small.Snapshot()))

	count, err := s.EntityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	loaded, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Entities, 1)
	assert.Equal(t, "MRI Scanner", loaded.Entities[0].Label)
	assert.Empty(t, loaded.Relationships)
}

func TestSavePreservesRemovedRows(t *testing.T) {
	conn := forgetest.CreateTestDB(t)
	s := New(conn, nil)
	ctx := context.Background()

	c := seedContainer(t)
	comps := c.EntitiesOfKind(ontology.KindComponent)
	require.Len(t, comps, 1)
	require.NoError(t, c.RemoveEntity(comps[0].ID, "expert@clinic", "duplicate entry"))

	require.NoError(t, s.Save(ctx, c.Snapshot()))

	loaded, err := s.Load(ctx)
	require.NoError(t, err)

	var removed *ontology.Entity
	for _, e := range loaded.Entities {
		if e.ID == comps[0].ID {
			removed = e
		}
	}
	require.NotNil(t, removed)
	assert.True(t, removed.Removed)
}

func TestSaveOrdersParentsFirst(t *testing.T) {
	conn := forgetest.CreateTestDB(t)
	s := New(conn, nil)
	ctx := context.Background()

	c := seedContainer(t)
	snap := c.Snapshot()

	// Reverse so children precede parents; Save must reorder for the
	// parent_id foreign key.
	for i, j := 0, len(snap.Entities)-1; i < j; i, j = i+1, j-1 {
		snap.Entities[i], snap.Entities[j] = snap.Entities[j], snap.Entities[i]
	}

	require.NoError(t, s.Save(ctx, snap))

	count, err := s.EntityCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestEntityCountEmpty(t *testing.T) {
	conn := forgetest.CreateTestDB(t)
	s := New(conn, nil)

	count, err := s.EntityCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSaveRollsBackOnInsertFailure(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM relationships").WillReturnResult(sqlmock.NewResult(0, 0))
	for range ontology.Kinds {
		mock.ExpectExec("DELETE FROM entities WHERE kind").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectExec("INSERT INTO entities").WillReturnError(assert.AnError)
	mock.ExpectRollback()

	c := ontology.New(ontology.Options{})
	_, err = c.AddEntity(ontology.NewSystem("LINAC", ontology.SystemAttrs{
		SystemType: ontology.SystemLinac,
	}))
	require.NoError(t, err)

	s := New(conn, nil)
	err = s.Save(context.Background(), c.Snapshot())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert entity")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFailsWhenBeginFails(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectBegin().WillReturnError(assert.AnError)

	s := New(conn, nil)
	err = s.Save(context.Background(), &ontology.Snapshot{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin snapshot tx")
}

func TestLoadQueryError(t *testing.T) {
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer conn.Close()

	mock.ExpectQuery("SELECT (.+) FROM entities").WillReturnError(assert.AnError)

	s := New(conn, nil)
	_, err = s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query entities")
}
