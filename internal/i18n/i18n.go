package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	mu            sync.RWMutex
	bundle        *i18n.Bundle
	defaultLocale = "en"
)

type ctxKey struct{}

// Init loads all locale files and sets the default locale.
func Init(defLocale string) error {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("json", json.Unmarshal)

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		return fmt.Errorf("i18n: read locales dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := localeFS.ReadFile("locales/" + e.Name())
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", e.Name(), err)
		}
		if _, err := b.ParseMessageFileBytes(data, e.Name()); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", e.Name(), err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	bundle = b
	if defLocale != "" {
		defaultLocale = defLocale
	}
	return nil
}

// WithLocale returns a new context carrying the given locale string (e.g. "en").
func WithLocale(ctx context.Context, locale string) context.Context {
	if locale == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, locale)
}

// LocaleFromContext extracts the locale from the context.
// Returns the configured default locale if not set.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	mu.RLock()
	defer mu.RUnlock()
	return defaultLocale
}

// T translates a message ID using the locale from the context.
// Optional templateData provides values for template placeholders.
func T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	b := loadedBundle()
	l := i18n.NewLocalizer(b, LocaleFromContext(ctx))

	cfg := &i18n.LocalizeConfig{MessageID: messageID}
	if len(templateData) > 0 && templateData[0] != nil {
		cfg.TemplateData = templateData[0]
	}

	msg, err := l.Localize(cfg)
	if err != nil {
		return messageID
	}
	return msg
}

func loadedBundle() *i18n.Bundle {
	mu.RLock()
	b := bundle
	mu.RUnlock()
	if b != nil {
		return b
	}
	// Embedded files only fail to load if the binary was built without them.
	if err := Init(""); err != nil {
		panic(err)
	}
	mu.RLock()
	defer mu.RUnlock()
	return bundle
}
