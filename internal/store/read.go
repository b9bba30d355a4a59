package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

// ReadPublishes returns publish records for identifier, or every record
// when identifier is empty. Ordered by seq ASC, id ASC COLLATE BINARY.
//
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadPublishes(ctx context.Context, identifier string) ([]ir.Publish, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, kind, identifier, canonical_path, instance_count, seq
		FROM publishes
		WHERE ? = '' OR identifier = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, identifier, identifier)
	if err != nil {
		return nil, fmt.Errorf("query publishes: %w", err)
	}
	defer rows.Close()

	publishes := []ir.Publish{}
	for rows.Next() {
		pub, err := scanPublish(rows)
		if err != nil {
			return nil, err
		}
		publishes = append(publishes, pub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate publishes: %w", err)
	}
	return publishes, nil
}

// ReadPublish retrieves a single publish by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadPublish(ctx context.Context, id string) (ir.Publish, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, kind, identifier, canonical_path, instance_count, seq
		FROM publishes
		WHERE id = ?
	`, id)
	return scanPublish(row)
}

// ReadPropagations returns the instances replaced by one publish, ordered
// by seq ASC, id ASC COLLATE BINARY.
func (s *Store) ReadPropagations(ctx context.Context, publishID string) ([]ir.Propagation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, publish_id, identifier, stale_path, fresh_path, pose, seq
		FROM propagations
		WHERE publish_id = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, publishID)
	if err != nil {
		return nil, fmt.Errorf("query propagations: %w", err)
	}
	defer rows.Close()

	props := []ir.Propagation{}
	for rows.Next() {
		var (
			prop     ir.Propagation
			poseJSON string
		)
		if err := rows.Scan(&prop.ID, &prop.PublishID, &prop.Identifier,
			&prop.StalePath, &prop.FreshPath, &poseJSON, &prop.Seq); err != nil {
			return nil, fmt.Errorf("scan propagation: %w", err)
		}
		if prop.Pose, err = unmarshalPose(poseJSON); err != nil {
			return nil, fmt.Errorf("propagation %s: %w", prop.ID, err)
		}
		props = append(props, prop)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate propagations: %w", err)
	}
	return props, nil
}

// LastSeq returns the highest seq in the journal. Used to resume the
// engine's logical clock.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var maxSeq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(
			(SELECT COALESCE(MAX(seq), 0) FROM publishes),
			(SELECT COALESCE(MAX(seq), 0) FROM propagations)
		)
	`).Scan(&maxSeq)
	if err != nil {
		return 0, fmt.Errorf("get last seq: %w", err)
	}
	return maxSeq, nil
}

// Identifiers returns every identifier that has been published, sorted.
func (s *Store) Identifiers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT identifier FROM publishes ORDER BY identifier COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query identifiers: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan identifier: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identifiers: %w", err)
	}
	return ids, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPublish(row scanner) (ir.Publish, error) {
	var (
		pub  ir.Publish
		kind string
	)
	if err := row.Scan(&pub.ID, &pub.Token, &kind, &pub.Identifier,
		&pub.CanonicalPath, &pub.InstanceCount, &pub.Seq); err != nil {
		if err == sql.ErrNoRows {
			return ir.Publish{}, err
		}
		return ir.Publish{}, fmt.Errorf("scan publish: %w", err)
	}
	pub.Kind = ir.PublishKind(kind)
	return pub, nil
}
