package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	emailPattern        = regexp.MustCompile(`[A-Za-z0-9+._-]+@[A-Za-z0-9+._-]+\.[A-Za-z0-9+_-]+`)
	urlPattern          = regexp.MustCompile(`https?://\S*`)
	numberPattern       = regexp.MustCompile(`\s\d+\b`)
	newlinePattern      = regexp.MustCompile(`[\r\n]+`)
	specialCharPattern  = regexp.MustCompile(`([.()!-])`)
	nonAlphabetPattern  = regexp.MustCompile(`[^a-zA-Z\s]+`)
	lemmaTrimPredicate  = func(r rune) bool { return !unicode.IsLetter(r) && r != '\'' }
	nonASCIIPredicate   = func(r rune) bool { return r > unicode.MaxASCII }
	combiningMarkRanges = runes.In(unicode.Mn)
)

// step is one stage of the cleaning pipeline.
type step struct {
	name    string
	enabled func(Config) bool
	apply   func(*Normalizer, string) string
}

// pipeline lists the stages in execution order.
var pipeline = []step{
	{"lowercase", func(c Config) bool { return c.Lowercase }, func(_ *Normalizer, s string) string {
		return strings.ToLower(s)
	}},
	{"strip_emails", func(c Config) bool { return c.StripEmails }, func(_ *Normalizer, s string) string {
		return emailPattern.ReplaceAllString(s, "")
	}},
	{"strip_urls", func(c Config) bool { return c.StripURLs }, func(_ *Normalizer, s string) string {
		return urlPattern.ReplaceAllString(s, "")
	}},
	{"normalize_accents", func(c Config) bool { return c.NormalizeAccents }, func(n *Normalizer, s string) string {
		out := foldToASCII(s)
		if n.cfg.Lowercase {
			// Letterlike and math alphanumerics only reach ASCII capitals here.
			out = strings.ToLower(out)
		}
		return out
	}},
	{"strip_numbers", func(c Config) bool { return c.StripNumbers }, func(_ *Normalizer, s string) string {
		return numberPattern.ReplaceAllString(s, " ")
	}},
	{"collapse_newlines", func(c Config) bool { return c.CollapseNewlines }, func(_ *Normalizer, s string) string {
		return newlinePattern.ReplaceAllString(s, " ")
	}},
	{"space_special_chars", func(c Config) bool { return c.SpaceSpecialChars }, func(_ *Normalizer, s string) string {
		return specialCharPattern.ReplaceAllString(s, " ${1} ")
	}},
	{"lemmatize", func(c Config) bool { return c.Lemmatize }, lemmatize},
	{"strip_special_chars", func(c Config) bool { return c.StripSpecialChars }, func(_ *Normalizer, s string) string {
		return nonAlphabetPattern.ReplaceAllString(s, "")
	}},
	{"collapse_whitespace", func(c Config) bool { return c.CollapseWhitespace }, func(_ *Normalizer, s string) string {
		return strings.Join(strings.Fields(s), " ")
	}},
	{"remove_stopwords", func(c Config) bool { return c.RemoveStopwords }, removeStopwords},
}

// StageNames returns the stage names in execution order.
func StageNames() []string {
	out := make([]string, len(pipeline))
	for i, s := range pipeline {
		out[i] = s.name
	}
	return out
}

// Normalizer applies the enabled stages of the pipeline to documents.
type Normalizer struct {
	cfg Config
	res *Resources
}

// New returns a Normalizer. A nil res uses DefaultResources.
func New(cfg Config, res *Resources) *Normalizer {
	if res == nil {
		res = DefaultResources()
	}
	return &Normalizer{cfg: cfg, res: res}
}

// Normalize cleans one document and truncates it to MaxLength characters.
// It never fails: stages that find nothing to change return their input.
func (n *Normalizer) Normalize(doc string) string {
	out := doc
	for _, s := range pipeline {
		if s.enabled(n.cfg) {
			out = s.apply(n, out)
		}
	}
	truncated := Truncate(out, n.cfg.MaxLength)
	if len(truncated) < len(out) {
		// A cut landing on a separator must not leave a dangling space.
		truncated = strings.TrimRightFunc(truncated, unicode.IsSpace)
	}
	return truncated
}

// Truncate cuts s to at most max runes. max <= 0 leaves s untouched.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// foldToASCII decomposes s, drops combining marks and then every rune that
// still has no ASCII form.
func foldToASCII(s string) string {
	t := transform.Chain(
		norm.NFKD,
		runes.Remove(combiningMarkRanges),
		runes.Remove(runes.Predicate(nonASCIIPredicate)),
	)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

func lemmatize(n *Normalizer, s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return s
	}
	for i, tok := range tokens {
		tokens[i] = lemmaToken(n.res, tok)
	}
	return strings.Join(tokens, " ")
}

// lemmaToken looks up the letters of tok, keeping any surrounding
// punctuation in place.
func lemmaToken(res *Resources, tok string) string {
	start := strings.IndexFunc(tok, func(r rune) bool { return !lemmaTrimPredicate(r) })
	if start < 0 {
		return tok
	}
	end := strings.LastIndexFunc(tok, func(r rune) bool { return !lemmaTrimPredicate(r) })
	_, size := utf8.DecodeRuneInString(tok[end:])
	end += size
	core := tok[start:end]
	if res.IsPronoun(core) {
		return tok
	}
	lemma, ok := res.Lemma(core)
	if !ok {
		return tok
	}
	return tok[:start] + lemma + tok[end:]
}

func removeStopwords(n *Normalizer, s string) string {
	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" || n.res.IsStopword(tok) {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}
