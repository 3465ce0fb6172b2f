package kbtypes

import (
	"fmt"
	"strconv"
	"strings"
)

// versionComponentWidth is the zero-pad width applied to each of the
// three version components so that string order agrees with semver
// order.
const versionComponentWidth = 5

// versionComponentMax is the smallest value that must be rejected: any
// component >= this is out of range for the fixed-width encoding.
const versionComponentMax = 100000

// NormalizeVersion parses "X.Y.Z" and returns the zero-padded canonical
// form "NNNNN.NNNNN.NNNNN" so that lexicographic order agrees with
// semver order. Returns a plain error (it does not wrap
// kberrors.ErrInvalidInput; callers wrap it) for malformed input or
// any component >= 100000.
func NormalizeVersion(v string) (string, error) {
	parts := strings.Split(v, ".")
	if len(parts) != 3 {
		return "", fmt.Errorf("version %q must have exactly 3 dot-separated components", v)
	}
	padded := make([]string, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", fmt.Errorf("version %q component %q is not a non-negative integer", v, p)
		}
		if n >= versionComponentMax {
			return "", fmt.Errorf("version %q component %q must be < %d", v, p, versionComponentMax)
		}
		padded[i] = fmt.Sprintf("%0*d", versionComponentWidth, n)
	}
	return strings.Join(padded, "."), nil
}

// DenormalizeVersion inverts NormalizeVersion, stripping the zero
// padding back to "X.Y.Z". Input that was never produced by
// NormalizeVersion is returned unchanged.
func DenormalizeVersion(normalized string) string {
	parts := strings.Split(normalized, ".")
	if len(parts) != 3 {
		return normalized
	}
	out := make([]string, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return normalized
		}
		out[i] = strconv.Itoa(n)
	}
	return strings.Join(out, ".")
}
