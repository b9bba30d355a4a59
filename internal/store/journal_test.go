package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

func TestReadPublishes_Empty(t *testing.T) {
	s := createTestStore(t)

	pubs, err := s.ReadPublishes(context.Background(), "")
	require.NoError(t, err)
	assert.NotNil(t, pubs, "empty slice, not nil")
	assert.Empty(t, pubs)
}

func TestWritePublish_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pub := createTestPublish("Pillar", ir.KindFirst, 1)

	require.NoError(t, s.WritePublish(ctx, pub))
	require.NoError(t, s.WritePublish(ctx, pub))

	pubs, err := s.ReadPublishes(ctx, "Pillar")
	require.NoError(t, err)
	require.Len(t, pubs, 1)
	assert.Equal(t, pub, pubs[0])
}

func TestWritePropagation_RequiresPublish(t *testing.T) {
	s := createTestStore(t)
	pub := createTestPublish("Pillar", ir.KindUpdate, 1)
	prop := createTestPropagation(pub, "|Set|Pillar1", 2)

	err := s.WritePropagation(context.Background(), prop)
	assert.Error(t, err, "foreign key on publish_id")
}

func TestRecord_WritesPublishAndPropagations(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pub := createTestPublish("Pillar", ir.KindUpdate, 1)
	pub.InstanceCount = 2
	props := []ir.Propagation{
		createTestPropagation(pub, "|Set|Pillar1", 2),
		createTestPropagation(pub, "|Pillar2", 3),
	}

	require.NoError(t, s.Record(ctx, pub, props))

	got, err := s.ReadPublish(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, pub, got)

	gotProps, err := s.ReadPropagations(ctx, pub.ID)
	require.NoError(t, err)
	assert.Equal(t, props, gotProps)
}

func TestRecord_RollsBackOnFailure(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pub := createTestPublish("Pillar", ir.KindUpdate, 1)
	orphan := createTestPropagation(createTestPublish("Other", ir.KindFirst, 9), "|Other1", 2)

	err := s.Record(ctx, pub, []ir.Propagation{orphan})
	require.Error(t, err)

	pubs, err := s.ReadPublishes(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, pubs, "publish is not visible without its propagations")
}

func TestReadPublishes_FilterAndOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	first := createTestPublish("Pillar", ir.KindFirst, 1)
	wall := createTestPublish("Wall", ir.KindFirst, 2)
	update := createTestPublish("Pillar", ir.KindUpdate, 3)

	// Written out of order on purpose.
	for _, p := range []ir.Publish{update, wall, first} {
		require.NoError(t, s.WritePublish(ctx, p))
	}

	all, err := s.ReadPublishes(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []ir.Publish{first, wall, update}, all)

	pillar, err := s.ReadPublishes(ctx, "Pillar")
	require.NoError(t, err)
	assert.Equal(t, []ir.Publish{first, update}, pillar)

	ids, err := s.Identifiers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Pillar", "Wall"}, ids)
}

func TestReadPublish_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadPublish(context.Background(), "missing")
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), seq)

	pub := createTestPublish("Pillar", ir.KindUpdate, 4)
	require.NoError(t, s.Record(ctx, pub, []ir.Propagation{createTestPropagation(pub, "|Pillar1", 7)}))

	seq, err = s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), seq)
}

func TestUnmarshalPose_RejectsGarbage(t *testing.T) {
	_, err := unmarshalPose(`["1.0","x"]`)
	assert.Error(t, err)

	pose, err := unmarshalPose("[]")
	require.NoError(t, err)
	assert.Empty(t, pose)
}
