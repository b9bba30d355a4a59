package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// PoseDecimals is the fixed precision used when a matrix enters a record.
const PoseDecimals = 6

// FormatPose renders row-major matrix values as fixed-precision strings.
// Negative zero is folded to zero so equal poses hash equally.
func FormatPose(flat []float64) []string {
	out := make([]string, len(flat))
	for i, v := range flat {
		s := strconv.FormatFloat(v, 'f', PoseDecimals, 64)
		if strings.TrimLeft(s, "-0.") == "" {
			s = strconv.FormatFloat(0, 'f', PoseDecimals, 64)
		}
		out[i] = s
	}
	return out
}

// ParsePose reverses FormatPose.
func ParsePose(pose []string) ([]float64, error) {
	out := make([]float64, len(pose))
	for i, s := range pose {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("pose[%d]: %w", i, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("pose[%d]: not finite: %s", i, s)
		}
		out[i] = v
	}
	return out, nil
}
