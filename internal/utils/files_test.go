package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	require.NoError(t, EnsureDir(dir))
	p := filepath.Join(dir, "result.json")
	require.NoError(t, SafeWriteFile(p, []byte("{}")))
	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
	_, err = os.Stat(p + ".tmp")
	assert.True(t, os.IsNotExist(err))

	err = SafeWriteFile(filepath.Join(t.TempDir(), "missing", "x.json"), nil)
	assert.Error(t, err)
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(b))

	_, err = PrettyJSON(make(chan int))
	assert.Error(t, err)
}

func TestStem(t *testing.T) {
	assert.Equal(t, "outlets", Stem("/data/outlets.xlsx"))
	assert.Equal(t, "排污口_2024", Stem("排污口 2024.csv"))
	assert.Equal(t, "archive.tar", Stem("archive.tar.gz"))
	assert.Equal(t, "input", Stem(""))
}

func TestUniqueStems(t *testing.T) {
	got := UniqueStems([]string{"a/outlets.csv", "b/outlets.xlsx", "c.csv", "d/outlets.csv"})
	assert.Equal(t, []string{"outlets", "outlets-2", "c", "outlets-3"}, got)
}
