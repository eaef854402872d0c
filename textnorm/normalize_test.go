package textnorm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allOff() Config {
	return Config{}
}

func TestNormalize(t *testing.T) {
	res := DefaultResources()

	t.Run("Should clean the contact example with every stage enabled", func(t *testing.T) {
		n := New(DefaultConfig(), res)
		got := n.Normalize("Contact me at a@b.com or visit http://x.com!!! 2 cats")

		assert.Equal(t, "contact visit cat", got)
		assert.NotContains(t, got, "@")
		assert.NotContains(t, got, "http")
		for _, tok := range strings.Fields(got) {
			assert.False(t, res.IsStopword(tok), "stopword %q survived", tok)
			assert.NotRegexp(t, `^\d+$`, tok)
		}
	})

	t.Run("Should leave text untouched when every stage is disabled", func(t *testing.T) {
		n := New(allOff(), res)
		in := "Mixed CASE, 42 tokens\nand é!"
		assert.Equal(t, in, n.Normalize(in))
	})

	t.Run("Should return an empty string when nothing survives cleaning", func(t *testing.T) {
		n := New(DefaultConfig(), res)
		assert.Equal(t, "", n.Normalize("!!! 123 the a an"))
		assert.Equal(t, "", n.Normalize(""))
	})

	t.Run("Should not panic on invalid UTF-8", func(t *testing.T) {
		n := New(DefaultConfig(), res)
		assert.NotPanics(t, func() { n.Normalize("bad \xff\xfe bytes") })
	})
}

func TestStages(t *testing.T) {
	res := DefaultResources()
	cases := []struct {
		name string
		cfg  Config
		in   string
		want string
	}{
		{"lowercase", Config{Lowercase: true}, "Breaking NEWS", "breaking news"},
		{"emails", Config{StripEmails: true}, "mail john.doe+x@mail.example.org now", "mail  now"},
		{"urls", Config{StripURLs: true}, "see https://a.b/c?d=1 and http://x", "see  and "},
		{"accents", Config{NormalizeAccents: true}, "Café naïve résumé 日本", "Cafe naive resume "},
		{"numbers", Config{StripNumbers: true}, "top 10 list 2cats 3", "top  list 2cats "},
		{"leading number kept", Config{StripNumbers: true}, "10 things", "10 things"},
		{"newlines", Config{CollapseNewlines: true}, "a\r\n\nb\rc", "a b c"},
		{"special spacing", Config{SpaceSpecialChars: true}, "u.s.(now)-wow!", "u . s .  ( now )  - wow ! "},
		{"lemmatize", Config{Lemmatize: true}, "the cats were running", "the cat be run"},
		{"lemmatize keeps pronouns", Config{Lemmatize: true}, "them us cats,", "them us cat,"},
		{"strip specials", Config{StripSpecialChars: true}, "it's 4 u!", "its  u"},
		{"whitespace", Config{CollapseWhitespace: true}, "  a \t b  ", "a b"},
		{"stopwords", Config{RemoveStopwords: true}, "The cat is on THE mat", "cat mat"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, New(tc.cfg, res).Normalize(tc.in))
		})
	}
}

func TestStageOrderIsFixed(t *testing.T) {
	assert.Equal(t, []string{
		"lowercase",
		"strip_emails",
		"strip_urls",
		"normalize_accents",
		"strip_numbers",
		"collapse_newlines",
		"space_special_chars",
		"lemmatize",
		"strip_special_chars",
		"collapse_whitespace",
		"remove_stopwords",
	}, StageNames())

	t.Run("Should drop stopwords produced by lemmatization", func(t *testing.T) {
		n := New(Config{Lemmatize: true, RemoveStopwords: true}, DefaultResources())
		assert.Equal(t, "", n.Normalize("Was"))
	})
}

func TestTruncation(t *testing.T) {
	t.Run("Should cap every output at MaxLength", func(t *testing.T) {
		cfg := DefaultConfig()
		n := New(cfg, nil)
		long := strings.Repeat("economy markets rally worldwide ", 20)
		got := n.Normalize(long)
		assert.LessOrEqual(t, utf8.RuneCountInString(got), cfg.MaxLength)
		assert.NotEmpty(t, got)
	})

	t.Run("Should cut mid-token", func(t *testing.T) {
		assert.Equal(t, "abcd", Truncate("abcdef", 4))
	})

	t.Run("Should count runes, not bytes", func(t *testing.T) {
		assert.Equal(t, "日本", Truncate("日本語", 2))
	})

	t.Run("Should disable truncation for non-positive limits", func(t *testing.T) {
		assert.Equal(t, "abcdef", Truncate("abcdef", 0))
		assert.Equal(t, "abcdef", Truncate("abcdef", -1))
	})

	t.Run("Should not leave a trailing space after cutting", func(t *testing.T) {
		n := New(Config{MaxLength: 4}, nil)
		assert.Equal(t, "abc", n.Normalize("abc def"))
	})
}

func TestIdempotence(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lemmatize = false
	cfg.RemoveStopwords = false
	n := New(cfg, nil)

	docs := []string{
		"Contact me at a@b.com or visit http://x.com!!! 2 cats",
		"Trump's Café (Downtown) -- 10 new menus\r\nannounced!",
		"   ",
		"Ünïcödé   héadline with   spacing and a very long tail that will be truncated somewhere mid word",
		"U.S. stocks rally 3% as Fed holds rates",
		"\U0001D401\U0001D42B\U0001D41E\U0001D41A\U0001D424\U0001D422\U0001D427\U0001D420 news",
		"\u210Cello world",
	}
	for i, doc := range docs {
		t.Run(fmt.Sprintf("doc-%d", i), func(t *testing.T) {
			once := n.Normalize(doc)
			assert.Equal(t, once, n.Normalize(once))
		})
	}
}

func TestAccentFoldingLowercase(t *testing.T) {
	t.Run("Should lower-case capitals produced by folding", func(t *testing.T) {
		n := New(Config{Lowercase: true, NormalizeAccents: true}, nil)
		assert.Equal(t, "breaking news", n.Normalize("\U0001D401\U0001D42B\U0001D41E\U0001D41A\U0001D424\U0001D422\U0001D427\U0001D420 news"))
		assert.Equal(t, "hello world", n.Normalize("\u210Cello world"))
	})

	t.Run("Should keep folded capitals when lowercase is off", func(t *testing.T) {
		n := New(Config{NormalizeAccents: true}, nil)
		assert.Equal(t, "Hello World", n.Normalize("\u210Cello World"))
	})
}

func TestNormalizeAll(t *testing.T) {
	t.Run("Should preserve input order", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Workers = 3
		n := New(cfg, nil)
		docs := make([]string, 101)
		for i := range docs {
			docs[i] = fmt.Sprintf("Headline number %d about cats", i)
		}
		out, err := n.NormalizeAll(t.Context(), docs)
		require.NoError(t, err)
		require.Len(t, out, len(docs))
		for i := range docs {
			assert.Equal(t, n.Normalize(docs[i]), out[i])
		}
	})

	t.Run("Should return an empty slice for no documents", func(t *testing.T) {
		out, err := New(DefaultConfig(), nil).NormalizeAll(t.Context(), nil)
		require.NoError(t, err)
		assert.Empty(t, out)
	})

	t.Run("Should stop on a cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		cancel()
		_, err := New(DefaultConfig(), nil).NormalizeAll(ctx, []string{"a", "b"})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestSetStage(t *testing.T) {
	t.Run("Should toggle every named stage", func(t *testing.T) {
		for _, name := range StageNames() {
			cfg := DefaultConfig()
			require.NoError(t, cfg.SetStage(name, false))
			assert.NotEqual(t, DefaultConfig(), cfg, name)
			require.NoError(t, cfg.SetStage(name, true))
			assert.Equal(t, DefaultConfig(), cfg, name)
		}
	})

	t.Run("Should reject unknown names", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.ErrorContains(t, cfg.SetStage("stem", true), `unknown stage "stem"`)
	})
}
