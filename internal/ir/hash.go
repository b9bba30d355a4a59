package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed IDs. The version suffix allows a
// future change of the hashed shape.
const (
	DomainPublish     = "layout/publish/v1"
	DomainPropagation = "layout/propagation/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// PublishID computes the content-addressed ID of a publish record.
// InstanceCount is excluded: it is a summary, not identity.
func PublishID(p Publish) (string, error) {
	obj := Object{
		"token":          String(p.Token),
		"kind":           String(p.Kind),
		"identifier":     String(p.Identifier),
		"canonical_path": String(p.CanonicalPath),
		"seq":            Int(p.Seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PublishID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPublish, canonical), nil
}

// PropagationID computes the content-addressed ID of a propagation record.
// It links to the publish via PublishID.
func PropagationID(p Propagation) (string, error) {
	obj := Object{
		"publish_id": String(p.PublishID),
		"identifier": String(p.Identifier),
		"stale_path": String(p.StalePath),
		"fresh_path": String(p.FreshPath),
		"pose":       Strings(p.Pose),
		"seq":        Int(p.Seq),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("PropagationID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPropagation, canonical), nil
}

// MustPublishID is like PublishID but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustPublishID(p Publish) string {
	id, err := PublishID(p)
	if err != nil {
		panic(err)
	}
	return id
}

// MustPropagationID is like PropagationID but panics on error.
func MustPropagationID(p Propagation) string {
	id, err := PropagationID(p)
	if err != nil {
		panic(err)
	}
	return id
}
