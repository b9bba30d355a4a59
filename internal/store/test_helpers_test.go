package store

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

// createTestStore opens a fresh journal under t.TempDir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestPublish builds a publish with its content-addressed ID.
func createTestPublish(identifier string, kind ir.PublishKind, seq int64) ir.Publish {
	pub := ir.Publish{
		Token:         "tok-" + identifier,
		Kind:          kind,
		Identifier:    identifier,
		CanonicalPath: "|Originals|" + identifier,
		Seq:           seq,
	}
	pub.ID = ir.MustPublishID(pub)
	return pub
}

// createTestPropagation builds a propagation linked to pub.
func createTestPropagation(pub ir.Publish, stalePath string, seq int64) ir.Propagation {
	prop := ir.Propagation{
		PublishID:  pub.ID,
		Identifier: pub.Identifier,
		StalePath:  stalePath,
		FreshPath:  stalePath,
		Pose: ir.FormatPose([]float64{
			1, 0, 0, 5,
			0, 1, 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}),
		Seq: seq,
	}
	prop.ID = ir.MustPropagationID(prop)
	return prop
}

// verifyPragma checks that a pragma reads back as expected.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	if err := s.db.QueryRow("PRAGMA " + name).Scan(&value); err != nil {
		return fmt.Errorf("query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
