// Package locale resolves the interface language and its text direction.
package locale

import (
	"sync"

	"golang.org/x/text/language"

	"github.com/learnockdevelopment/Mafazaa-Moodle/internal/events"
)

// Default is used whenever a language tag is missing or unparsable.
const Default = "en"

// Dir is a text direction.
type Dir string

// Text directions.
const (
	LTR Dir = "ltr"
	RTL Dir = "rtl"
)

var rtlBases = map[string]bool{"ar": true, "he": true, "fa": true, "ur": true}

// Normalize returns the canonical form of lang, or Default when lang is
// empty or not a valid BCP 47 tag. Site codes such as "ar_eg" are accepted.
func Normalize(lang string) string {
	tag, ok := parse(lang)
	if !ok {
		return Default
	}
	return tag.String()
}

// Direction returns RTL for Arabic, Hebrew, Persian and Urdu, LTR otherwise.
func Direction(lang string) Dir {
	tag, ok := parse(lang)
	if !ok {
		return LTR
	}
	base, _ := tag.Base()
	if rtlBases[base.String()] {
		return RTL
	}
	return LTR
}

func parse(lang string) (language.Tag, bool) {
	if lang == "" {
		return language.Und, false
	}
	b := []byte(lang)
	for i, c := range b {
		if c == '_' {
			b[i] = '-'
		}
	}
	tag, err := language.Parse(string(b))
	if err != nil || tag == language.Und {
		return language.Und, false
	}
	return tag, true
}

// Watcher follows language changes published on a bus.
type Watcher struct {
	mu   sync.RWMutex
	lang string
}

// NewWatcher starts at initial, normalized.
func NewWatcher(initial string) *Watcher {
	return &Watcher{lang: Normalize(initial)}
}

// Current returns the language in effect.
func (w *Watcher) Current() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.lang
}

// Direction returns the text direction of the current language.
func (w *Watcher) Direction() Dir {
	return Direction(w.Current())
}

// Set switches the language and reports whether it changed.
func (w *Watcher) Set(lang string) bool {
	lang = Normalize(lang)
	w.mu.Lock()
	defer w.mu.Unlock()
	if lang == w.lang {
		return false
	}
	w.lang = lang
	return true
}

// Attach subscribes to bus and applies every language published on it
// until detach is called or the bus is closed. onChange, if non-nil, runs
// after each effective change. The subscription exists when Attach returns.
func (w *Watcher) Attach(bus *events.Bus[string], onChange func(lang string, dir Dir)) (detach func()) {
	ch, cancel := bus.Subscribe(4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for lang := range ch {
			if w.Set(lang) && onChange != nil {
				cur := w.Current()
				onChange(cur, Direction(cur))
			}
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
