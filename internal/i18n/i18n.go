package i18n

import (
	"embed"
	"fmt"
	"sync"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// Translator resolves UI strings for the active language. Lookups with
// no translation fall back to the message key, the same behavior the
// interface shipped with from day one.
type Translator struct {
	bundle *goi18n.Bundle

	mu        sync.RWMutex
	localizer *goi18n.Localizer
	lang      string
}

// New loads the embedded locales and starts in the given language
func New(lang string) (*Translator, error) {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)
	for _, name := range []string{"locales/en.yaml", "locales/ru.yaml"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, name); err != nil {
			return nil, fmt.Errorf("load locale %s: %w", name, err)
		}
	}
	t := &Translator{bundle: bundle}
	t.SetLanguage(lang)
	return t, nil
}

// SetLanguage switches the active language
func (t *Translator) SetLanguage(lang string) {
	if lang == "" {
		lang = "en"
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lang = lang
	t.localizer = goi18n.NewLocalizer(t.bundle, lang, "en")
}

// Language returns the active language tag
func (t *Translator) Language() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.lang
}

// T resolves a message key, falling back to the key itself
func (t *Translator) T(key string) string {
	t.mu.RLock()
	localizer := t.localizer
	t.mu.RUnlock()

	msg, err := localizer.Localize(&goi18n.LocalizeConfig{MessageID: key})
	if err != nil {
		return key
	}
	return msg
}
