// Package i18n renders localized rejection warnings from the "errors"
// namespace of the message catalog.
package i18n

import (
	"strings"
	"sync"
	"text/template"

	i18ncatalog "github.com/JakeHR99/Stryder-TTRPG/internal/platform/i18n/catalog"
)

// Catalog holds the parsed warning templates of one locale, keyed by
// rejection code.
type Catalog struct {
	locale    string
	raw       map[string]string
	templates map[string]*template.Template
}

var loaded = struct {
	sync.RWMutex
	byLocale map[string]*Catalog
}{byLocale: map[string]*Catalog{}}

// GetCatalog returns the catalog for locale, building it from the embedded
// message catalog on first use. Unknown locales resolve to the base locale.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if requested == "" {
		requested = i18ncatalog.BaseLocale
	}
	if c := lookup(requested); c != nil {
		return c
	}

	resolved, messages := i18ncatalog.Default().NamespaceMessagesWithFallback(requested, "errors")
	if c := lookup(resolved); c != nil {
		return c
	}

	loaded.Lock()
	defer loaded.Unlock()
	if c, ok := loaded.byLocale[resolved]; ok {
		return c
	}
	c := NewCatalog(resolved, messages)
	loaded.byLocale[resolved] = c
	return c
}

// RegisterCatalog installs c for locale, replacing any loaded catalog.
func RegisterCatalog(locale string, c *Catalog) {
	loaded.Lock()
	defer loaded.Unlock()
	loaded.byLocale[locale] = c
}

// NewCatalog parses messages into a catalog. A message that does not parse
// is kept and rendered verbatim.
func NewCatalog(locale string, messages map[string]string) *Catalog {
	c := &Catalog{
		locale:    locale,
		raw:       make(map[string]string, len(messages)),
		templates: make(map[string]*template.Template, len(messages)),
	}
	for code, text := range messages {
		c.raw[code] = text
		if tmpl, err := template.New(code).Option("missingkey=zero").Parse(text); err == nil {
			c.templates[code] = tmpl
		}
	}
	return c
}

// Locale returns the locale of the catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Has reports whether the catalog carries a message for code.
func (c *Catalog) Has(code string) bool {
	_, ok := c.raw[code]
	return ok
}

// Format renders the warning for code with metadata as template data.
// Unknown codes render as the code itself.
func (c *Catalog) Format(code string, metadata map[string]string) string {
	text, ok := c.raw[code]
	if !ok {
		return code
	}
	tmpl := c.templates[code]
	if tmpl == nil {
		return text
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, metadata); err != nil {
		return text
	}
	return out.String()
}

func lookup(locale string) *Catalog {
	loaded.RLock()
	defer loaded.RUnlock()
	return loaded.byLocale[locale]
}
