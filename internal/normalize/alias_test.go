package normalize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAliasTableResolve(t *testing.T) {
	table := DefaultAliasTable()

	tests := []struct {
		name   string
		value  string
		want   string
		wantOK bool
	}{
		{"exact", "北京大学", "PKU", true},
		{"exact short alias", "北大", "PKU", true},
		{"containment", "毕业于清华大学物理系", "THU", true},
		{"whitespace trimmed", "  复旦大学  ", "FDU", true},
		{"empty resolves to empty", "", "", true},
		{"unknown", "麻省理工学院", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, ok := table.Resolve(tt.value)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, code)
		})
	}
}

func TestAliasTableLongestAliasWins(t *testing.T) {
	table := DefaultAliasTable()

	// value contains both 北京大学物理学院 and its substrings 北京大学 / 北大
	code, ok := table.Resolve("北京大学物理学院凝聚态所")
	require.True(t, ok)
	assert.Equal(t, "PKU", code)

	custom := NewAliasTable(map[string]string{
		"大学":     "GENERIC",
		"科学大学":   "SU",
		"东京科学大学": "TITECH",
	})
	code, ok = custom.Resolve("东京科学大学理学部")
	require.True(t, ok)
	assert.Equal(t, "TITECH", code)
}

func TestLoadAliasFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "北京大学: PKU\n麻省理工: MIT\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	table, err := LoadAliasFile(path)
	require.NoError(t, err)

	code, ok := table.Resolve("麻省理工")
	require.True(t, ok)
	assert.Equal(t, "MIT", code)
}

func TestLoadAliasFileMissing(t *testing.T) {
	_, err := LoadAliasFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
