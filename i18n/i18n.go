// Package i18n provides internationalization support for strsync itself.
//
// It wraps the gotext library to provide simple T() and N() functions
// for translating the command line messages. Translations are embedded
// in the binary via //go:embed and loaded at startup via Init().
//
// Usage:
//
//	import "github.com/minios-linux/strsync/i18n"
//
//	func main() {
//	    i18n.Init("")  // auto-detect from LANGUAGE/LC_ALL/LC_MESSAGES/LANG
//	    fmt.Println(i18n.T("Nothing to undo"))
//	    fmt.Println(i18n.N("%d file updated", "%d files updated", count))
//	}
package i18n

import (
	"embed"
	"os"
	"sort"
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// locales embeds the compiled .po/.mo translation files.
// Directory structure: locales/{lang}/LC_MESSAGES/strsync.po
//
//go:embed all:locales
var locales embed.FS

// domain is the gettext domain name.
const domain = "strsync"

// po is the gotext locale object used for translations.
var po *gotext.Locale

// Init initializes the i18n system. If lang is empty, it auto-detects
// from the environment variables LANGUAGE, LC_ALL, LC_MESSAGES, LANG
// (in that order, matching GNU gettext behavior). The closest embedded
// catalog is used, so "ru_RU" and "ru-BY" both load "ru".
//
// Init should be called once at program startup, before any T() or N() calls.
func Init(lang string) {
	if lang == "" {
		lang = detectLanguage()
	}

	po = gotext.NewLocaleFSWithPath(match(lang), locales, "locales")
	po.AddDomain(domain)
	po.SetDomain(domain)
}

// T translates a string. If no translation is available, returns the
// original string unchanged (standard gettext passthrough behavior).
func T(msgid string) string {
	if po == nil {
		return msgid
	}
	return po.Get(msgid)
}

// N translates a string with plural forms. The singular form is used
// when n == 1, the plural form otherwise (exact rules depend on the
// target language's plural formula).
func N(singular, plural string, n int) string {
	if po == nil {
		if n == 1 {
			return singular
		}
		return plural
	}
	return po.GetN(singular, plural, n)
}

// localeEnv lists the variables consulted for the message locale, in GNU
// gettext priority order.
var localeEnv = []string{"LANGUAGE", "LC_ALL", "LC_MESSAGES", "LANG"}

// detectLanguage returns the first locale set in the environment, without
// its encoding ("ru_RU.UTF-8" -> "ru_RU"). "C" and "POSIX" disable
// translation and are skipped. LANGUAGE may hold a colon-separated list,
// only its first element is used.
func detectLanguage() string {
	for _, env := range localeEnv {
		val := os.Getenv(env)
		if env == "LANGUAGE" {
			val, _, _ = strings.Cut(val, ":")
		}
		val, _, _ = strings.Cut(val, ".")
		switch val {
		case "", "C", "POSIX":
			continue
		}
		return val
	}
	return "en"
}

// Available returns the languages that have an embedded catalog.
func Available() []string {
	entries, err := locales.ReadDir("locales")
	if err != nil {
		return nil
	}
	var langs []string
	for _, e := range entries {
		if e.IsDir() {
			langs = append(langs, e.Name())
		}
	}
	sort.Strings(langs)
	return langs
}

// match maps a POSIX locale name to the closest embedded catalog. The name
// is returned unchanged when nothing matches.
func match(lang string) string {
	avail := Available()
	if len(avail) == 0 {
		return lang
	}
	// Drop the modifier: "sr_RS@latin" -> "sr_RS".
	name, _, _ := strings.Cut(lang, "@")
	want, err := language.Parse(strings.ReplaceAll(name, "_", "-"))
	if err != nil {
		return lang
	}

	tags := make([]language.Tag, len(avail))
	for i, a := range avail {
		tags[i] = language.Make(strings.ReplaceAll(a, "_", "-"))
	}
	_, idx, conf := language.NewMatcher(tags).Match(want)
	if conf == language.No {
		return lang
	}
	return avail[idx]
}
