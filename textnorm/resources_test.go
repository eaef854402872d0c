package textnorm

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultResources(t *testing.T) {
	res := DefaultResources()

	assert.Greater(t, res.StopwordCount(), 100)
	assert.Greater(t, res.LemmaCount(), 500)
	assert.True(t, res.IsStopword("The"))
	assert.False(t, res.IsStopword("election"))
	assert.True(t, res.IsPronoun("Them"))

	lemma, ok := res.Lemma("Children")
	require.True(t, ok)
	assert.Equal(t, "child", lemma)

	_, ok = res.Lemma("news")
	assert.True(t, ok)
}

func TestLoadLemmaDictionary(t *testing.T) {
	t.Run("Should skip comments and malformed lines", func(t *testing.T) {
		dict, err := LoadLemmaDictionary(strings.NewReader("# header\nRan\trun\nbroken line\n\tnolemma\nmice\tmouse\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"ran": "run", "mice": "mouse"}, dict)
	})
}

func TestLoadResources(t *testing.T) {
	t.Run("Should read custom lists from disk", func(t *testing.T) {
		dir := t.TempDir()
		stopPath := filepath.Join(dir, "stop.txt")
		lemmaPath := filepath.Join(dir, "lemmas.tsv")
		require.NoError(t, os.WriteFile(stopPath, []byte("\ufeffbreaking\nnews\n"), 0o644))
		require.NoError(t, os.WriteFile(lemmaPath, []byte("rallies\trally\n"), 0o644))

		res, err := LoadResources(stopPath, lemmaPath)
		require.NoError(t, err)
		assert.Equal(t, 2, res.StopwordCount())
		assert.True(t, res.IsStopword("breaking"))
		assert.False(t, res.IsStopword("the"))

		n := New(DefaultConfig(), res)
		assert.Equal(t, "the market rally", n.Normalize("Breaking news: the market rallies"))
	})

	t.Run("Should fall back to embedded lists for empty paths", func(t *testing.T) {
		res, err := LoadResources("", "")
		require.NoError(t, err)
		assert.Equal(t, DefaultResources().StopwordCount(), res.StopwordCount())
	})

	t.Run("Should report missing files", func(t *testing.T) {
		_, err := LoadResources(filepath.Join(t.TempDir(), "missing.txt"), "")
		assert.ErrorContains(t, err, "load stopwords")
	})
}
