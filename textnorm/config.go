package textnorm

import "fmt"

// DefaultMaxLength is the character budget applied after cleaning.
const DefaultMaxLength = 64

// Config toggles the individual cleaning stages. Stage order never depends on
// which toggles are set.
type Config struct {
	Lowercase          bool `json:"lowercase" koanf:"lowercase"`
	StripEmails        bool `json:"strip_emails" koanf:"strip_emails"`
	StripURLs          bool `json:"strip_urls" koanf:"strip_urls"`
	NormalizeAccents   bool `json:"normalize_accents" koanf:"normalize_accents"`
	StripNumbers       bool `json:"strip_numbers" koanf:"strip_numbers"`
	CollapseNewlines   bool `json:"collapse_newlines" koanf:"collapse_newlines"`
	SpaceSpecialChars  bool `json:"space_special_chars" koanf:"space_special_chars"`
	Lemmatize          bool `json:"lemmatize" koanf:"lemmatize"`
	StripSpecialChars  bool `json:"strip_special_chars" koanf:"strip_special_chars"`
	CollapseWhitespace bool `json:"collapse_whitespace" koanf:"collapse_whitespace"`
	RemoveStopwords    bool `json:"remove_stopwords" koanf:"remove_stopwords"`

	// MaxLength caps the output in characters. Zero disables truncation.
	MaxLength int `json:"max_length" koanf:"max_length" validate:"gte=0"`
	// Workers bounds NormalizeAll fan-out. Zero means GOMAXPROCS.
	Workers int `json:"workers" koanf:"workers" validate:"gte=0"`
}

// DefaultConfig enables every stage and truncates to DefaultMaxLength.
func DefaultConfig() Config {
	return Config{
		Lowercase:          true,
		StripEmails:        true,
		StripURLs:          true,
		NormalizeAccents:   true,
		StripNumbers:       true,
		CollapseNewlines:   true,
		SpaceSpecialChars:  true,
		Lemmatize:          true,
		StripSpecialChars:  true,
		CollapseWhitespace: true,
		RemoveStopwords:    true,
		MaxLength:          DefaultMaxLength,
	}
}

// SetStage toggles the stage with the given name, as listed by StageNames.
func (c *Config) SetStage(name string, enabled bool) error {
	flags := map[string]*bool{
		"lowercase":           &c.Lowercase,
		"strip_emails":        &c.StripEmails,
		"strip_urls":          &c.StripURLs,
		"normalize_accents":   &c.NormalizeAccents,
		"strip_numbers":       &c.StripNumbers,
		"collapse_newlines":   &c.CollapseNewlines,
		"space_special_chars": &c.SpaceSpecialChars,
		"lemmatize":           &c.Lemmatize,
		"strip_special_chars": &c.StripSpecialChars,
		"collapse_whitespace": &c.CollapseWhitespace,
		"remove_stopwords":    &c.RemoveStopwords,
	}
	p, ok := flags[name]
	if !ok {
		return fmt.Errorf("unknown stage %q", name)
	}
	*p = enabled
	return nil
}
