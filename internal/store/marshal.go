package store

import (
	"encoding/json"
	"fmt"

	"github.com/BIGHELP69/Creating-a-scene-layout-tool/internal/ir"
)

// marshalPose converts a pose to canonical JSON TEXT for storage.
func marshalPose(pose []string) (string, error) {
	data, err := ir.MarshalCanonical(ir.Strings(pose))
	if err != nil {
		return "", fmt.Errorf("marshal pose: %w", err)
	}
	return string(data), nil
}

// unmarshalPose parses pose TEXT and checks every element is numeric.
func unmarshalPose(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var pose []string
	if err := json.Unmarshal([]byte(data), &pose); err != nil {
		return nil, fmt.Errorf("unmarshal pose: %w", err)
	}
	if _, err := ir.ParsePose(pose); err != nil {
		return nil, fmt.Errorf("unmarshal pose: %w", err)
	}
	return pose, nil
}
