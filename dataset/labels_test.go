package dataset

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitLabels(t *testing.T) {
	t.Run("Should assign sorted indices by default", func(t *testing.T) {
		m, err := FitLabels([]string{"SPORTS", "POLITICS", "SPORTS"}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"POLITICS", "SPORTS"}, m.Labels())
		idx, ok := m.Encode("SPORTS")
		assert.True(t, ok)
		assert.Equal(t, 1, idx)
	})

	t.Run("Should assign first-seen indices", func(t *testing.T) {
		m, err := FitLabels([]string{"SPORTS", "POLITICS", "SPORTS"}, LabelOrderFirstSeen)
		require.NoError(t, err)
		assert.Equal(t, []string{"SPORTS", "POLITICS"}, m.Labels())
	})

	t.Run("Should be a bijection over the observed labels", func(t *testing.T) {
		in := []string{"POLITICS", "SPORTS", "POLITICS", "TECH", "ARTS"}
		m, err := FitLabels(in, LabelOrderSorted)
		require.NoError(t, err)
		assert.Equal(t, 4, m.Len())
		for _, l := range in {
			idx, ok := m.Encode(l)
			require.True(t, ok)
			back, ok := m.Decode(idx)
			require.True(t, ok)
			assert.Equal(t, l, back)
		}
		_, ok := m.Decode(4)
		assert.False(t, ok)
		_, ok = m.Decode(-1)
		assert.False(t, ok)
	})

	t.Run("Should reject unknown orders and empty input", func(t *testing.T) {
		_, err := FitLabels([]string{"a"}, "random")
		assert.ErrorContains(t, err, "unknown label order")
		_, err = FitLabels(nil, LabelOrderSorted)
		assert.ErrorIs(t, err, ErrNoLabels)
	})

	t.Run("Should reject duplicates in an explicit list", func(t *testing.T) {
		_, err := NewLabelMap([]string{"a", "b", "a"})
		assert.ErrorContains(t, err, "duplicate label")
	})
}

func TestLabelMapPersistence(t *testing.T) {
	t.Run("Should write label_enc,label rows sorted by index", func(t *testing.T) {
		m, err := FitLabels([]string{"POLITICS", "SPORTS", "POLITICS"}, LabelOrderSorted)
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, EncodeLabelMap(&buf, m))
		assert.Equal(t, "label_enc,label\n0,POLITICS\n1,SPORTS\n", buf.String())
	})

	t.Run("Should round-trip through a file", func(t *testing.T) {
		m, err := FitLabels([]string{"WELLNESS", "ENTERTAINMENT", "CRIME", "STYLE & BEAUTY"}, LabelOrderFirstSeen)
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "out", LabelsFile)
		require.NoError(t, WriteLabelMap(path, m))

		loaded, err := ReadLabelMap(path)
		require.NoError(t, err)
		assert.Equal(t, m.Labels(), loaded.Labels())
		assert.NoFileExists(t, path+".tmp")
	})

	t.Run("Should accept rows in any order", func(t *testing.T) {
		m, err := DecodeLabelMap(strings.NewReader("label,label_enc\nB,1\nA,0\n"))
		require.NoError(t, err)
		assert.Equal(t, []string{"A", "B"}, m.Labels())
	})

	t.Run("Should reject malformed files", func(t *testing.T) {
		cases := map[string]string{
			"missing header":  "idx,name\n0,A\n",
			"bad index":       "label_enc,label\nx,A\n",
			"gap":             "label_enc,label\n0,A\n2,B\n",
			"duplicate index": "label_enc,label\n0,A\n0,B\n",
			"duplicate label": "label_enc,label\n0,A\n1,A\n",
			"empty":           "",
		}
		for name, input := range cases {
			t.Run(name, func(t *testing.T) {
				_, err := DecodeLabelMap(strings.NewReader(input))
				assert.Error(t, err)
			})
		}
	})
}
