package kbtypes

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeVersionRoundTrip(t *testing.T) {
	norm, err := NormalizeVersion("1.2.3")
	require.NoError(t, err)
	assert.Equal(t, "00001.00002.00003", norm)
	assert.Equal(t, "1.2.3", DenormalizeVersion(norm))
}

func TestNormalizeVersionDeterministic(t *testing.T) {
	a, err := NormalizeVersion("10.0.5")
	require.NoError(t, err)
	b, err := NormalizeVersion("10.0.5")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeVersionRejectsOutOfRange(t *testing.T) {
	_, err := NormalizeVersion("100000.0.0")
	assert.Error(t, err)
}

func TestNormalizeVersionRejectsMalformed(t *testing.T) {
	for _, v := range []string{"1.2", "1.2.3.4", "a.b.c", ""} {
		_, err := NormalizeVersion(v)
		assert.Error(t, err, v)
	}
}

func TestNormalizedStringSortAgreesWithSemver(t *testing.T) {
	versions := []string{"2.0.0", "1.10.0", "1.2.0", "10.0.0", "1.2.10"}
	normalized := make([]string, len(versions))
	for i, v := range versions {
		n, err := NormalizeVersion(v)
		require.NoError(t, err)
		normalized[i] = n
	}
	sort.Strings(normalized)

	denormalized := make([]string, len(normalized))
	for i, n := range normalized {
		denormalized[i] = DenormalizeVersion(n)
	}
	assert.Equal(t, []string{"1.2.0", "1.2.10", "1.10.0", "2.0.0", "10.0.0"}, denormalized)
}

func TestDenormalizeVersionPassesThroughUnrecognizedInput(t *testing.T) {
	assert.Equal(t, "not-a-version", DenormalizeVersion("not-a-version"))
}
