package scene

import (
	"path"
	"strconv"
	"strings"
)

// PathSeparator separates node names in a full path.
const PathSeparator = "|"

// ShortName returns the last segment of a full path.
//
//	"|Originals|Pillar" -> "Pillar"
func ShortName(p string) string {
	if i := strings.LastIndex(p, PathSeparator); i >= 0 {
		return p[i+1:]
	}
	return p
}

// SplitPath returns the parent path and the short name.
// The parent of a top-level node is "".
func SplitPath(p string) (parent, name string) {
	i := strings.LastIndex(p, PathSeparator)
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

func validName(name string) bool {
	return name != "" && !strings.Contains(name, PathSeparator)
}

// matchPath matches a full path against a segment pattern.
func matchPath(pattern, p string) bool {
	if pattern == "" {
		return true
	}
	ps := strings.Split(pattern, PathSeparator)
	ss := strings.Split(p, PathSeparator)
	if len(ps) != len(ss) {
		return false
	}
	for i := range ps {
		ok, err := path.Match(ps[i], ss[i])
		if err != nil || !ok {
			return false
		}
	}
	return true
}

// nextName increments a trailing number: "Pillar" -> "Pillar1", "Pillar1" -> "Pillar2".
func nextName(name string) string {
	base := strings.TrimRight(name, "0123456789")
	n := 0
	if digits := name[len(base):]; digits != "" {
		n, _ = strconv.Atoi(digits)
	}
	return base + strconv.Itoa(n+1)
}
