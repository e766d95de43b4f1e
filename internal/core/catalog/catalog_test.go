package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCatalog = `{
  "穀類": {
    "白米(炊飯直後)": {"calories": 156, "protein": 2.5, "fat": 0.3, "carbs": 37.1},
    "白米（温め直し）": {"calories": 156, "protein": 2.5, "fat": 0.3, "carbs": 37.1}
  },
  "卵類": {
    "鶏卵 M（58g）": {"calories": 82, "protein": 7.1, "fat": 5.9, "carbs": 0.2, "servingSize": 58, "servingUnit": "1個"}
  }
}`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o644))

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())

	// 排序：分類、名稱
	assert.Equal(t, "卵類", c.Entries()[0].Category)

	e, ok := c.Get("穀類", "白米(炊飯直後)")
	require.True(t, ok)
	assert.Equal(t, "白米（炊飯直後）", e.Name)
	assert.Equal(t, 156.0, e.Record.Calories)

	egg, ok := c.Get("卵類", "鶏卵 M（58g）")
	require.True(t, ok)
	assert.Equal(t, 58.0, egg.Record.ServingSize)
	assert.Equal(t, "1個", egg.Record.ServingUnit)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"穀類": [`), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestVisible(t *testing.T) {
	items := []CustomItem{{Name: "a"}, {Name: "b", Hidden: true}, {Name: "c"}}
	got := Visible(items)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}
