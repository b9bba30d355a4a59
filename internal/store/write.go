package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WritePublish inserts a publish record. Uses ON CONFLICT(id) DO NOTHING
// for idempotency; other constraint violations still return errors.
func (s *Store) WritePublish(ctx context.Context, pub ir.Publish) error {
	if err := insertPublish(ctx, s.db, pub); err != nil {
		return fmt.Errorf("write publish: %w", err)
	}
	return nil
}

// WritePropagation inserts a propagation record. The referenced publish
// must exist (foreign key constraint).
func (s *Store) WritePropagation(ctx context.Context, prop ir.Propagation) error {
	if err := insertPropagation(ctx, s.db, prop); err != nil {
		return fmt.Errorf("write propagation: %w", err)
	}
	return nil
}

// Record writes a publish and its propagations in one transaction, so a
// reader never sees a publish without its instances.
func (s *Store) Record(ctx context.Context, pub ir.Publish, props []ir.Propagation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("record publish: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if err := insertPublish(ctx, tx, pub); err != nil {
		return fmt.Errorf("record publish: %w", err)
	}
	for _, prop := range props {
		if err := insertPropagation(ctx, tx, prop); err != nil {
			return fmt.Errorf("record propagation %s: %w", prop.StalePath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("record publish: commit: %w", err)
	}
	return nil
}

func insertPublish(ctx context.Context, ex execer, pub ir.Publish) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO publishes
		(id, token, kind, identifier, canonical_path, instance_count, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		pub.ID,
		pub.Token,
		string(pub.Kind),
		pub.Identifier,
		pub.CanonicalPath,
		pub.InstanceCount,
		pub.Seq,
	)
	return err
}

func insertPropagation(ctx context.Context, ex execer, prop ir.Propagation) error {
	poseJSON, err := marshalPose(prop.Pose)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO propagations
		(id, publish_id, identifier, stale_path, fresh_path, pose, seq)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		prop.ID,
		prop.PublishID,
		prop.Identifier,
		prop.StalePath,
		prop.FreshPath,
		poseJSON,
		prop.Seq,
	)
	return err
}
