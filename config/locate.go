package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrNotStrings is returned for paths that are not a resource file of
	// the configured name inside a values directory.
	ErrNotStrings = errors.New("not a strings file")
	// ErrNoDefault is returned when a resource family has no default
	// values/ document.
	ErrNoDefault = errors.New("default strings file not found")
)

// Family is one default resource document and its localized siblings.
type Family struct {
	// ResDir is the res/ directory holding the values directories.
	ResDir string
	// Default is the path of values/<file>.
	Default string
	// Localized are the paths of values-XX/<file>, sorted by directory.
	Localized []string
}

// IsStringsFile reports whether path names the configured resource file
// inside a values or values-XX directory.
func (c *Config) IsStringsFile(path string) bool {
	if filepath.Base(path) != c.FileName {
		return false
	}
	dir := filepath.Base(filepath.Dir(path))
	return dir == valuesDir || strings.HasPrefix(dir, localizedPrefix)
}

// IsDefault reports whether path is the default document of its family.
func (c *Config) IsDefault(path string) bool {
	return c.IsStringsFile(path) && filepath.Base(filepath.Dir(path)) == valuesDir
}

// IsLocalized reports whether path is a localized document.
func (c *Config) IsLocalized(path string) bool {
	return c.IsStringsFile(path) && !c.IsDefault(path)
}

// Tag returns the localization tag of a document: the configured default
// tag for values/, the directory qualifier otherwise (values-pt-rBR → pt-rBR).
func (c *Config) Tag(path string) string {
	dir := filepath.Base(filepath.Dir(path))
	if dir == valuesDir {
		return c.DefaultTag
	}
	return strings.TrimPrefix(dir, localizedPrefix)
}

// Locate returns the family of the document at path.
func (c *Config) Locate(path string) (*Family, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	if !c.IsStringsFile(abs) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotStrings)
	}
	return c.FamilyOf(filepath.Dir(filepath.Dir(abs)))
}

// FamilyOf returns the family rooted at a res/ directory. Localized
// directories whose qualifier is not a locale (values-v21, values-land,
// values-sw600dp) are skipped, as are locales outside the configured filter.
func (c *Config) FamilyOf(resDir string) (*Family, error) {
	f := &Family{
		ResDir:  resDir,
		Default: filepath.Join(resDir, valuesDir, c.FileName),
	}
	if !fileExists(f.Default) {
		return nil, fmt.Errorf("%s: %w", resDir, ErrNoDefault)
	}

	entries, err := os.ReadDir(resDir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", resDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() || !strings.HasPrefix(name, localizedPrefix) {
			continue
		}
		qualifier := strings.TrimPrefix(name, localizedPrefix)
		if _, ok := Locale(qualifier); !ok || !c.wantLocale(qualifier) {
			continue
		}
		path := filepath.Join(resDir, name, c.FileName)
		if fileExists(path) {
			f.Localized = append(f.Localized, path)
		}
	}
	return f, nil
}

// Families returns every family of the project.
func (c *Config) Families(rootDir string) ([]*Family, error) {
	dirs, err := c.ResolveResDirs(rootDir)
	if err != nil {
		return nil, err
	}
	var out []*Family
	for _, d := range dirs {
		f, err := c.FamilyOf(d)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func (c *Config) wantLocale(qualifier string) bool {
	if len(c.Locales) == 0 {
		return true
	}
	std := androidLocaleToStandard(qualifier)
	for _, l := range c.Locales {
		if strings.EqualFold(androidLocaleToStandard(l), std) {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Locale qualifiers
// ---------------------------------------------------------------------------

// Locale parses the locale part of an Android values qualifier: "fr",
// "pt-rBR", "b+sr+Latn". Qualifiers following the locale ("fr-night") are
// ignored. ok is false when the qualifier does not start with a language.
func Locale(qualifier string) (language.Tag, bool) {
	if strings.HasPrefix(qualifier, "b+") {
		tag, err := language.Parse(strings.ReplaceAll(qualifier[2:], "+", "-"))
		if err != nil {
			return language.Und, false
		}
		return tag, true
	}

	parts := strings.Split(qualifier, "-")
	if nonLocale[strings.ToLower(parts[0])] {
		return language.Und, false
	}
	base, err := language.ParseBase(parts[0])
	if err != nil || len(parts[0]) < 2 {
		return language.Und, false
	}
	if len(parts) > 1 && len(parts[1]) == 3 && parts[1][0] == 'r' {
		if region, err := language.ParseRegion(parts[1][1:]); err == nil {
			tag, err := language.Compose(base, region)
			if err == nil {
				return tag, true
			}
		}
	}
	tag, err := language.Compose(base)
	if err != nil {
		return language.Und, false
	}
	return tag, true
}

// nonLocale holds UI mode and screen qualifiers that may lead a values
// directory name. Some are also ISO 639 codes ("car" is Carib).
var nonLocale = map[string]bool{
	"car":        true,
	"desk":       true,
	"television": true,
	"appliance":  true,
	"watch":      true,
	"vrheadset":  true,
	"hdr":        true,
}

// DisplayName returns the native name of the locale of a qualifier
// ("fr" → "français"), or the qualifier itself when it is unknown.
func DisplayName(qualifier string) string {
	tag, ok := Locale(qualifier)
	if !ok {
		return qualifier
	}
	if name := display.Self.Name(tag); name != "" {
		return name
	}
	return qualifier
}

// androidLocaleToStandard converts Android locale format to standard BCP-47.
// e.g., "pt-rBR" -> "pt-BR", "zh-rCN" -> "zh-CN", "ru" -> "ru"
func androidLocaleToStandard(androidLocale string) string {
	if idx := strings.Index(androidLocale, "-r"); idx >= 0 {
		return androidLocale[:idx] + "-" + androidLocale[idx+2:]
	}
	return androidLocale
}

// standardToAndroidLocale converts standard BCP-47 to Android locale format.
// e.g., "pt-BR" -> "pt-rBR", "zh-CN" -> "zh-rCN", "ru" -> "ru"
func standardToAndroidLocale(lang string) string {
	parts := strings.SplitN(lang, "-", 2)
	if len(parts) == 2 && len(parts[1]) > 0 && !strings.HasPrefix(parts[1], "r") {
		return parts[0] + "-r" + parts[1]
	}
	return lang
}
