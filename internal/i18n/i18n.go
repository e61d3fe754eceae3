package i18n

import (
	"embed"
	"encoding/json"
	"log"

	goi18n "github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator renders status and error messages in the configured language.
type Translator struct {
	localizer *goi18n.Localizer
}

func NewTranslator(defaultLang string) *Translator {
	bundle := goi18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	for _, file := range []string{"locales/en.json", "locales/pt.json"} {
		if _, err := bundle.LoadMessageFileFS(localeFS, file); err != nil {
			log.Printf("Warning: could not load %s file: %v", file, err)
		}
	}

	return &Translator{
		localizer: goi18n.NewLocalizer(bundle, defaultLang, language.English.String()),
	}
}

// T returns the message for id, or id itself when no translation exists.
func (t *Translator) T(id string, data ...map[string]any) string {
	cfg := &goi18n.LocalizeConfig{MessageID: id}
	if len(data) > 0 {
		cfg.TemplateData = data[0]
	}
	text, err := t.localizer.Localize(cfg)
	if err != nil {
		return id
	}
	return text
}
