package version

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	tests := []struct {
		version string
		target  string
		want    bool
	}{
		{"0.3.0", "0.3.0", true},
		{"0.3.1", "0.3.0", true},
		{"0.10.0", "0.9.4", true},
		{"0.2.9", "0.3.0", false},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, IsVersionGreaterOrEqualThan(test.version, test.target), "%s >= %s", test.version, test.target)
	}
}

func TestIsVersionGreaterThan(t *testing.T) {
	assert.False(t, IsVersionGreaterThan("0.3.0", "0.3.0"))
	assert.True(t, IsVersionGreaterThan("0.3.1", "0.3.0"))
	assert.True(t, IsVersionGreaterThan("1.0.0", "0.99.0"))
}

func TestGetMinorVersion(t *testing.T) {
	assert.Equal(t, "0.3", GetMinorVersion("0.3.7"))
	assert.Equal(t, "", GetMinorVersion("0.3"))
}

func TestSortVersion(t *testing.T) {
	versions := []string{"0.3.10", "0.1.0", "0.3.2", "0.2.5"}
	sort.Sort(SortVersion(versions))
	assert.Equal(t, []string{"0.1.0", "0.2.5", "0.3.2", "0.3.10"}, versions)
}
