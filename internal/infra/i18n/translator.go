package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"

	"telegram-movie-finder/internal/domain/model"
	"telegram-movie-finder/internal/domain/ports/adapter"
)

//go:embed locales
var LocalesFS embed.FS

var _ adapter.Localizer = (*Bundle)(nil)

// Translator holds the messages of a single language.
type Translator struct {
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	return newTranslatorFromBytes(data)
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) has(key string) bool {
	_, ok := t.translations[key]
	return ok
}

// Bundle serves every supported language. Keys missing in a language fall
// back to the default language, then to the key itself.
type Bundle struct {
	byLang   map[model.Language]*Translator
	fallback *Translator
}

// NewBundle loads uz, ru and en from fsys. The default language file is mandatory.
func NewBundle(fsys fs.FS) (*Bundle, error) {
	b := &Bundle{byLang: make(map[model.Language]*Translator, 3)}
	for _, lang := range []model.Language{model.LanguageUz, model.LanguageRu, model.LanguageEn} {
		tr, err := NewTranslator(fsys, string(lang))
		if err != nil {
			return nil, err
		}
		b.byLang[lang] = tr
	}
	b.fallback = b.byLang[model.DefaultLanguage]
	return b, nil
}

func (b *Bundle) T(lang model.Language, key string, args ...interface{}) string {
	if tr, ok := b.byLang[lang]; ok && tr.has(key) {
		return tr.T(key, args...)
	}
	return b.fallback.T(key, args...)
}

// Variants returns the text of key in every loaded language. The gateway uses
// it to recognise reply-keyboard buttons regardless of the sender's language.
func (b *Bundle) Variants(key string) []string {
	out := make([]string, 0, len(b.byLang))
	for _, lang := range []model.Language{model.LanguageUz, model.LanguageRu, model.LanguageEn} {
		if tr, ok := b.byLang[lang]; ok && tr.has(key) {
			out = append(out, tr.T(key))
		}
	}
	return out
}
