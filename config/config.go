// Package config provides .strsync.yaml project file support and location of
// Android resource families (values/strings.xml and its values-XX siblings).
//
// The project file is optional. Without it every res/ directory below the
// project root that holds values/strings.xml is synchronized.
package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .strsync.yaml structure.
type Config struct {
	// ResDirs are Android res/ directories relative to the project root.
	// Empty means auto-detect.
	ResDirs []string `yaml:"res_dirs,omitempty"`
	// FileName is the resource file name synchronized in each values
	// directory (default "strings.xml").
	FileName string `yaml:"file_name,omitempty"`
	// DefaultTag marks entries copied into the default document
	// (default "def").
	DefaultTag string `yaml:"default_tag,omitempty"`
	// Locales restricts which localized documents are touched. Both
	// Android ("pt-rBR") and BCP-47 ("pt-BR") spellings are accepted.
	Locales []string `yaml:"locales,omitempty"`
	// Journal is the undo journal path relative to the project root
	// (default "strsync.journal").
	Journal string `yaml:"journal,omitempty"`
}

// ConfigFileName is the default config file name.
const ConfigFileName = ".strsync.yaml"

const (
	// DefaultFileName is the resource file synchronized when none is configured.
	DefaultFileName = "strings.xml"
	// DefaultTag is the tag used for entries copied into the default document.
	DefaultTag = "def"
	// DefaultJournal is the undo journal file name.
	DefaultJournal = "strsync.journal"

	valuesDir       = "values"
	localizedPrefix = "values-"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns a configuration with every default applied.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load loads and validates .strsync.yaml from the given directory.
// Returns Default() if no .strsync.yaml exists.
func Load(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c.applyDefaults()

	if strings.ContainsAny(c.FileName, `/\`) {
		return nil, fmt.Errorf("%s: file_name %q must be a bare file name", path, c.FileName)
	}
	if strings.ContainsAny(c.DefaultTag, "[]") {
		return nil, fmt.Errorf("%s: default_tag %q must not contain brackets", path, c.DefaultTag)
	}
	for _, l := range c.Locales {
		if _, ok := Locale(standardToAndroidLocale(l)); !ok {
			return nil, fmt.Errorf("%s: unknown locale %q", path, l)
		}
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.FileName == "" {
		c.FileName = DefaultFileName
	}
	if c.DefaultTag == "" {
		c.DefaultTag = DefaultTag
	}
	if c.Journal == "" {
		c.Journal = DefaultJournal
	}
}

// JournalPath returns the absolute journal path for a project root.
func (c *Config) JournalPath(rootDir string) string {
	if filepath.IsAbs(c.Journal) {
		return c.Journal
	}
	return filepath.Join(rootDir, c.Journal)
}

// ---------------------------------------------------------------------------
// res/ directory discovery
// ---------------------------------------------------------------------------

// skipDirs are never descended into while auto-detecting res/ directories.
var skipDirs = map[string]bool{
	"build":         true,
	"node_modules":  true,
	"intermediates": true,
}

// ResolveResDirs returns the absolute res/ directories of the project.
func (c *Config) ResolveResDirs(rootDir string) ([]string, error) {
	absRoot, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, err
	}

	if len(c.ResDirs) > 0 {
		dirs := make([]string, 0, len(c.ResDirs))
		for _, d := range c.ResDirs {
			if !filepath.IsAbs(d) {
				d = filepath.Join(absRoot, d)
			}
			dirs = append(dirs, d)
		}
		return dirs, nil
	}

	var dirs []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if path != absRoot && (strings.HasPrefix(name, ".") || skipDirs[name]) {
			return filepath.SkipDir
		}
		if name == valuesDir && fileExists(filepath.Join(path, c.FileName)) {
			dirs = append(dirs, filepath.Dir(path))
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", absRoot, err)
	}
	sort.Strings(dirs)
	return dirs, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
