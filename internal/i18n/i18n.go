// Package i18n translates user-facing strings with %name% parameter interpolation.
//
// Message keys are the English source strings; a locale catalog maps each key
// to its translation. Missing keys fall back to the key itself.
package i18n

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/text/language"
)

// Params holds named interpolation values.
type Params map[string]string

// Bundle holds the catalogs of every supported locale.
type Bundle struct {
	mu       sync.RWMutex
	tags     []language.Tag
	catalogs map[language.Tag]map[string]string
	matcher  language.Matcher
}

// NewBundle returns a bundle with English as the default locale.
func NewBundle() *Bundle {
	b := &Bundle{catalogs: make(map[language.Tag]map[string]string)}
	b.Add(language.English, nil)
	return b
}

// Add registers or extends the catalog for tag.
func (b *Bundle) Add(tag language.Tag, messages map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	catalog, ok := b.catalogs[tag]
	if !ok {
		catalog = make(map[string]string, len(messages))
		b.catalogs[tag] = catalog
		b.tags = append(b.tags, tag)
		b.matcher = language.NewMatcher(b.tags)
	}
	for k, v := range messages {
		catalog[k] = v
	}
}

// LoadDir reads every <locale>.json file in dir as a flat key -> translation object.
func (b *Bundle) LoadDir(dir string) (int, error) {
	if strings.TrimSpace(dir) == "" {
		return 0, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("list locales: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		tag, err := language.Parse(name)
		if err != nil {
			return 0, fmt.Errorf("locale %s: %w", name, err)
		}
		data, err := os.ReadFile(file)
		if err != nil {
			return 0, fmt.Errorf("read locale %s: %w", name, err)
		}
		var messages map[string]string
		if err := json.Unmarshal(data, &messages); err != nil {
			return 0, fmt.Errorf("parse locale %s: %w", name, err)
		}
		b.Add(tag, messages)
	}
	return len(files), nil
}

// Translator picks the best catalog for the given preferences, such as
// Accept-Language header values or plain tags. No preference selects English.
func (b *Bundle) Translator(prefs ...string) *Translator {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var wanted []language.Tag
	for _, pref := range prefs {
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil {
			continue
		}
		wanted = append(wanted, tags...)
	}

	tag := b.tags[0]
	if len(wanted) > 0 {
		_, idx, conf := b.matcher.Match(wanted...)
		if conf != language.No {
			tag = b.tags[idx]
		}
	}
	return &Translator{tag: tag, catalog: b.catalogs[tag]}
}

// Translator translates keys for one locale.
type Translator struct {
	tag     language.Tag
	catalog map[string]string
}

// Language returns the selected locale.
func (t *Translator) Language() language.Tag {
	return t.tag
}

// T translates key and substitutes %name% placeholders from params.
func (t *Translator) T(key string, params ...Params) string {
	text := key
	if t != nil {
		if translated, ok := t.catalog[key]; ok && translated != "" {
			text = translated
		}
	}
	if len(params) == 0 {
		return text
	}
	return interpolate(text, params[0])
}

// interpolate replaces %name% with params[name]. Unknown names are left as written.
func interpolate(text string, params Params) string {
	if len(params) == 0 || !strings.Contains(text, "%") {
		return text
	}

	var out strings.Builder
	out.Grow(len(text))
	for {
		start := strings.IndexByte(text, '%')
		if start < 0 {
			out.WriteString(text)
			break
		}
		end := strings.IndexByte(text[start+1:], '%')
		if end < 0 {
			out.WriteString(text)
			break
		}
		end += start + 1

		name := text[start+1 : end]
		if value, ok := params[name]; ok {
			out.WriteString(text[:start])
			out.WriteString(value)
			text = text[end+1:]
			continue
		}
		// Not a placeholder: emit through the first % and rescan from the second.
		out.WriteString(text[:end])
		text = text[end:]
	}
	return out.String()
}
