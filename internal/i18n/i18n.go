// Package i18n holds the bot's message catalog. The default catalog is
// embedded; a directory of YAML files may override any key.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var embedded embed.FS

// Translator resolves localized strings using dot-separated keys.
type Translator interface {
	T(key string) string
	Tf(key string, args ...any) string
	// Sequence returns key.0, key.1, ... up to the first missing index.
	Sequence(key string) []string
	Has(key string) bool
	Lang() string
}

// Manager stores all available translations.
type Manager struct {
	translations map[string]map[string]string
	defaultLang  string
}

// Load loads the embedded catalog and, when overrideDir is set, merges the
// YAML files found there on top of it.
func Load(overrideDir, defaultLang string) (*Manager, error) {
	sub, err := fs.Sub(embedded, "locales")
	if err != nil {
		return nil, fmt.Errorf("i18n: open embedded catalog: %w", err)
	}

	catalog, err := parseDir(sub, ".")
	if err != nil {
		return nil, err
	}

	if overrideDir != "" {
		overrides, err := parseDir(os.DirFS(overrideDir), ".")
		if err != nil {
			return nil, err
		}
		merge(catalog, overrides)
	}

	return newManager(catalog, defaultLang)
}

// LoadFromDir loads translations from a directory containing YAML files only.
func LoadFromDir(dir, defaultLang string) (*Manager, error) {
	catalog, err := parseDir(os.DirFS(dir), ".")
	if err != nil {
		return nil, err
	}

	return newManager(catalog, defaultLang)
}

func newManager(catalog map[string]map[string]string, defaultLang string) (*Manager, error) {
	if defaultLang == "" {
		defaultLang = "en"
	}

	if _, ok := catalog[defaultLang]; !ok {
		return nil, fmt.Errorf("i18n: default language %q is missing", defaultLang)
	}

	return &Manager{translations: catalog, defaultLang: defaultLang}, nil
}

// Translator returns a translator for the requested language.
func (m *Manager) Translator(lang string) Translator {
	if m == nil {
		return translator{}
	}

	norm := strings.ToLower(strings.TrimSpace(lang))
	if norm == "" || m.translations[norm] == nil {
		norm = m.defaultLang
	}

	return translator{
		lang:         norm,
		fallback:     m.defaultLang,
		translations: m.translations,
	}
}

// Languages returns all loaded languages.
func (m *Manager) Languages() []string {
	if m == nil {
		return nil
	}

	languages := make([]string, 0, len(m.translations))
	for lang := range m.translations {
		languages = append(languages, lang)
	}
	return languages
}

type translator struct {
	lang         string
	fallback     string
	translations map[string]map[string]string
}

func (t translator) Lang() string {
	return t.lang
}

func (t translator) T(key string) string {
	key = strings.TrimSpace(key)
	if key == "" {
		return ""
	}

	if value := t.lookup(t.lang, key); value != "" {
		return value
	}

	if value := t.lookup(t.fallback, key); value != "" {
		return value
	}

	return key
}

func (t translator) Tf(key string, args ...any) string {
	return fmt.Sprintf(t.T(key), args...)
}

func (t translator) Has(key string) bool {
	key = strings.TrimSpace(key)
	return t.lookup(t.lang, key) != "" || t.lookup(t.fallback, key) != ""
}

func (t translator) Sequence(key string) []string {
	var out []string
	for i := 0; ; i++ {
		itemKey := key + "." + strconv.Itoa(i)
		if !t.Has(itemKey) {
			return out
		}
		out = append(out, t.T(itemKey))
	}
}

func (t translator) lookup(lang, key string) string {
	if lang == "" || t.translations == nil {
		return ""
	}

	if entries := t.translations[lang]; entries != nil {
		if value, ok := entries[key]; ok {
			return value
		}
	}

	return ""
}

func parseDir(fsys fs.FS, dir string) (map[string]map[string]string, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("i18n: read dir %s: %w", dir, err)
	}

	catalog := make(map[string]map[string]string)
	var processed bool

	for _, entry := range entries {
		if entry.IsDir() || !isYAML(entry) {
			continue
		}

		processed = true

		fileCatalog, err := parseFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		merge(catalog, fileCatalog)
	}

	if !processed {
		return nil, fmt.Errorf("i18n: no yaml files found in %s", dir)
	}

	return catalog, nil
}

func isYAML(entry fs.DirEntry) bool {
	name := strings.ToLower(entry.Name())
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

func merge(dst, src map[string]map[string]string) {
	for lang, translations := range src {
		if _, ok := dst[lang]; !ok {
			dst[lang] = make(map[string]string)
		}
		for key, value := range translations {
			dst[lang][key] = value
		}
	}
}

// parseFile reads one catalog file: languages at the top level, messages
// nested below them. Nested keys are joined with dots and list items get
// their index as the key.
func parseFile(fsys fs.FS, name string) (map[string]map[string]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("i18n: read file %s: %w", name, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("i18n: parse file %s: %w", name, err)
	}

	catalog := make(map[string]map[string]string)
	if len(doc.Content) == 0 {
		return catalog, nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("i18n: %s: top level must map languages to messages", name)
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		lang := strings.ToLower(strings.TrimSpace(root.Content[i].Value))
		if lang == "" {
			continue
		}

		messages := make(map[string]string)
		flatten("", root.Content[i+1], messages)
		if len(messages) > 0 {
			catalog[lang] = messages
		}
	}

	return catalog, nil
}

func flatten(key string, node *yaml.Node, out map[string]string) {
	switch node.Kind {
	case yaml.ScalarNode:
		if key != "" {
			out[key] = node.Value
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(node.Content); i += 2 {
			if child := node.Content[i].Value; child != "" {
				flatten(joinKey(key, child), node.Content[i+1], out)
			}
		}
	case yaml.SequenceNode:
		for i, item := range node.Content {
			flatten(joinKey(key, strconv.Itoa(i)), item, out)
		}
	case yaml.AliasNode:
		if node.Alias != nil {
			flatten(key, node.Alias, out)
		}
	}
}

func joinKey(prefix, key string) string {
	if prefix == "" {
		return key
	}
	return prefix + "." + key
}
