package ir

// PublishKind distinguishes the two publish operations.
type PublishKind string

const (
	KindFirst  PublishKind = "first"
	KindUpdate PublishKind = "update"
)

// Publish records one successful publish operation.
type Publish struct {
	ID            string      `json:"id"`
	Token         string      `json:"token"`
	Kind          PublishKind `json:"kind"`
	Identifier    string      `json:"identifier"`
	CanonicalPath string      `json:"canonical_path"`
	InstanceCount int64       `json:"instance_count"`
	Seq           int64       `json:"seq"`
}

// Propagation records one instance replaced during a publish. Pose is the
// world matrix applied to the fresh instance, see FormatPose.
type Propagation struct {
	ID         string   `json:"id"`
	PublishID  string   `json:"publish_id"`
	Identifier string   `json:"identifier"`
	StalePath  string   `json:"stale_path"`
	FreshPath  string   `json:"fresh_path"`
	Pose       []string `json:"pose"`
	Seq        int64    `json:"seq"`
}

// Object returns the record as a canonical value, omitting the derived ID
// and token so traces stay stable across runs.
func (p Publish) Object() Object {
	return Object{
		"kind":           String(p.Kind),
		"identifier":     String(p.Identifier),
		"canonical_path": String(p.CanonicalPath),
		"instance_count": Int(p.InstanceCount),
		"seq":            Int(p.Seq),
	}
}

// Object returns the record as a canonical value without its IDs.
func (p Propagation) Object() Object {
	return Object{
		"identifier": String(p.Identifier),
		"stale_path": String(p.StalePath),
		"fresh_path": String(p.FreshPath),
		"pose":       Strings(p.Pose),
		"seq":        Int(p.Seq),
	}
}
