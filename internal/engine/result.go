package engine

import (
	"context"
	"fmt"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/scene"
	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/xform"
)

// Instance describes one instance produced by a publish. StalePath is the
// path of the instance it replaced, empty for the instance handed out by
// PublishFirst.
type Instance struct {
	ID        scene.NodeID `json:"id"`
	Path      string       `json:"path"`
	StalePath string       `json:"stale_path,omitempty"`
	Pose      xform.Matrix `json:"pose"`
}

// Result reports what a publish changed.
type Result struct {
	Kind          ir.PublishKind `json:"kind"`
	Token         string         `json:"token"`
	Identifier    string         `json:"identifier"`
	Canonical     scene.NodeID   `json:"canonical"`
	CanonicalPath string         `json:"canonical_path"`
	Instances     []Instance     `json:"instances"`

	// Filled once the publish succeeded, whether or not a journal is set.
	Publish      ir.Publish       `json:"-"`
	Propagations []ir.Propagation `json:"-"`
}

// record stamps the result with journal records and writes them when a
// journal is configured.
func (e *Engine) record(ctx context.Context, res *Result) error {
	pub := ir.Publish{
		Token:         res.Token,
		Kind:          res.Kind,
		Identifier:    res.Identifier,
		CanonicalPath: res.CanonicalPath,
		InstanceCount: int64(len(res.Instances)),
		Seq:           e.clock.Next(),
	}
	id, err := ir.PublishID(pub)
	if err != nil {
		return &SyncError{Code: ErrCodeJournal, Message: "compute publish id", Identifier: res.Identifier, Err: err}
	}
	pub.ID = id

	props := make([]ir.Propagation, 0, len(res.Instances))
	for _, inst := range res.Instances {
		prop := ir.Propagation{
			PublishID:  pub.ID,
			Identifier: res.Identifier,
			StalePath:  inst.StalePath,
			FreshPath:  inst.Path,
			Pose:       ir.FormatPose(inst.Pose.Flat()),
			Seq:        e.clock.Next(),
		}
		if prop.ID, err = ir.PropagationID(prop); err != nil {
			return &SyncError{Code: ErrCodeJournal, Message: "compute propagation id", Identifier: res.Identifier, Node: inst.Path, Err: err}
		}
		props = append(props, prop)
	}
	res.Publish = pub
	res.Propagations = props

	if e.journal == nil {
		return nil
	}
	if err := e.journal.Record(ctx, pub, props); err != nil {
		e.logger.Error("journal write failed", "token", res.Token, "identifier", res.Identifier, "error", err)
		return &SyncError{
			Code:       ErrCodeJournal,
			Message:    fmt.Sprintf("scene updated but publish %s was not journaled", res.Token),
			Identifier: res.Identifier,
			Err:        err,
		}
	}
	return nil
}
