package textnorm

import (
	"bufio"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	//go:embed data/stopwords_en.txt
	embeddedStopwords string
	//go:embed data/lemmas_en.tsv
	embeddedLemmas string
	//go:embed data/pronouns_en.txt
	embeddedPronouns string
)

// Resources holds the word lists the lemmatize and stopword stages consult.
// A Resources value is never mutated after construction, so one instance can
// back any number of normalizers and goroutines.
type Resources struct {
	stopwords map[string]struct{}
	lemmas    map[string]string
	pronouns  map[string]struct{}
}

// NewResources builds an immutable resource set. Keys are lower-cased.
func NewResources(stopwords []string, lemmas map[string]string, pronouns []string) *Resources {
	r := &Resources{
		stopwords: toSet(stopwords),
		lemmas:    make(map[string]string, len(lemmas)),
		pronouns:  toSet(pronouns),
	}
	for form, lemma := range lemmas {
		form = strings.ToLower(strings.TrimSpace(form))
		lemma = strings.TrimSpace(lemma)
		if form == "" || lemma == "" {
			continue
		}
		r.lemmas[form] = lemma
	}
	return r
}

// DefaultResources returns the embedded English stopword list, lemma
// dictionary and pronoun list.
func DefaultResources() *Resources {
	stopwords, _ := LoadStopwords(strings.NewReader(embeddedStopwords))
	lemmas, _ := LoadLemmaDictionary(strings.NewReader(embeddedLemmas))
	pronouns, _ := LoadStopwords(strings.NewReader(embeddedPronouns))
	return NewResources(stopwords, lemmas, pronouns)
}

// LoadResources reads word lists from disk. Empty paths fall back to the
// embedded defaults for that list.
func LoadResources(stopwordsPath, lemmasPath string) (*Resources, error) {
	stopwords, err := loadListFile(stopwordsPath, embeddedStopwords, LoadStopwords)
	if err != nil {
		return nil, fmt.Errorf("load stopwords: %w", err)
	}
	lemmas, err := loadListFile(lemmasPath, embeddedLemmas, LoadLemmaDictionary)
	if err != nil {
		return nil, fmt.Errorf("load lemma dictionary: %w", err)
	}
	pronouns, _ := LoadStopwords(strings.NewReader(embeddedPronouns))
	return NewResources(stopwords, lemmas, pronouns), nil
}

func loadListFile[T any](path, fallback string, parse func(io.Reader) (T, error)) (T, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return parse(strings.NewReader(fallback))
	}
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		var zero T
		return zero, err
	}
	defer f.Close()
	return parse(f)
}

// LoadStopwords reads one word per line. Blank lines and lines starting with
// '#' are ignored.
func LoadStopwords(r io.Reader) ([]string, error) {
	var out []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan word list: %w", err)
	}
	return out, nil
}

// LoadLemmaDictionary reads "form<TAB>lemma" lines. Lines without a tab, with
// an empty side, or starting with '#' are skipped.
func LoadLemmaDictionary(r io.Reader) (map[string]string, error) {
	out := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimPrefix(scanner.Text(), "\ufeff")
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		form, lemma, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		form = strings.ToLower(strings.TrimSpace(form))
		lemma = strings.TrimSpace(lemma)
		if form == "" || lemma == "" {
			continue
		}
		out[form] = lemma
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan lemma dictionary: %w", err)
	}
	return out, nil
}

// IsStopword reports whether the lower-cased word is in the stopword set.
func (r *Resources) IsStopword(word string) bool {
	_, ok := r.stopwords[strings.ToLower(word)]
	return ok
}

// IsPronoun reports whether the lower-cased word is a pronoun.
func (r *Resources) IsPronoun(word string) bool {
	_, ok := r.pronouns[strings.ToLower(word)]
	return ok
}

// Lemma returns the dictionary base form of word.
func (r *Resources) Lemma(word string) (string, bool) {
	lemma, ok := r.lemmas[strings.ToLower(word)]
	return lemma, ok
}

// StopwordCount returns the size of the stopword set.
func (r *Resources) StopwordCount() int { return len(r.stopwords) }

// LemmaCount returns the number of dictionary entries.
func (r *Resources) LemmaCount() int { return len(r.lemmas) }

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		set[w] = struct{}{}
	}
	return set
}
