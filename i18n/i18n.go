// Package i18n renders the human-readable messages attached to validation
// errors and policy rejections in the caller's locale.
package i18n

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

var (
	bundle        *i18n.Bundle
	loadOnce      sync.Once
	mu            sync.RWMutex
	defaultLocale = "en"
)

type ctxKey struct{}

// Init loads the embedded locale files and sets the default locale. T calls
// it lazily with the current default when it hasn't been called.
func Init(defLocale string) error {
	if defLocale != "" {
		mu.Lock()
		defaultLocale = defLocale
		mu.Unlock()
	}
	var err error
	loadOnce.Do(func() { err = load() })
	return err
}

func load() error {
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
	bundle = b
	slog.Debug("i18n: locales loaded", "files", len(entries), "default", DefaultLocale())
	return nil
}

// DefaultLocale returns the configured fallback locale.
func DefaultLocale() string {
	mu.RLock()
	defer mu.RUnlock()
	return defaultLocale
}

// WithLocale returns a new context carrying the given locale, e.g. "vi" or
// an Accept-Language value such as "en-US,en;q=0.9".
func WithLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, ctxKey{}, locale)
}

// LocaleFromContext extracts the locale from the context, falling back to the
// default locale.
func LocaleFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKey{}).(string); ok && v != "" {
		return v
	}
	return DefaultLocale()
}

// T translates a message ID using the locale from the context. Unknown IDs
// are returned as-is.
func T(ctx context.Context, messageID string, templateData ...map[string]any) string {
	if err := Init(""); err != nil || bundle == nil {
		return messageID
	}
	l := i18n.NewLocalizer(bundle, LocaleFromContext(ctx), DefaultLocale())

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
