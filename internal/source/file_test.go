package source

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidschrooten/index-bootstrap/internal/document"
)

const movies = `{
  "10": {"id": 10, "title": "Star Wars Collection", "cast": [{"name": "Mark Hamill", "character": "Luke"}]},
  "2": {"title": "Ariel", "vote_average": 7.1, "genres": ["Drama", "Crime"]}
}`

func TestDecode(t *testing.T) {
	docs, err := Decode(strings.NewReader(movies))
	require.NoError(t, err)

	assert.Equal(t, []string{"10", "2"}, docs.IDs())

	ariel, ok := docs.Get("2")
	require.True(t, ok)
	assert.Equal(t, document.Scalar{V: "2"}, ariel["id"])
	assert.Equal(t, document.Scalar{V: json.Number("7.1")}, ariel["vote_average"])
	assert.Equal(t, document.KindScalarList, ariel["genres"].Kind())

	starWars, ok := docs.Get("10")
	require.True(t, ok)
	assert.Equal(t, document.Scalar{V: json.Number("10")}, starWars["id"])
	assert.Equal(t, document.KindObjectList, starWars["cast"].Kind())
}

func TestDecode_KeepsInputOrder(t *testing.T) {
	docs, err := Decode(strings.NewReader(`{"5": {"title": "E"}, "1": {"title": "A"}, "30": {"title": "C"}, "2": {"title": "B"}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"5", "1", "30", "2"}, docs.IDs())
}

func TestDecode_Invalid(t *testing.T) {
	_, err := Decode(strings.NewReader(`[1, 2]`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"1": null}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"1": {"title": "A"}`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tmdb.json")
	require.NoError(t, os.WriteFile(path, []byte(movies), 0644))

	docs, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, docs.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
