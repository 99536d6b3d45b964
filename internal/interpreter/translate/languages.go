// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     translate
// Description: Language names, translator prompt and output cleanup
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package translate

import (
	"fmt"
	"strings"
)

var languageNames = map[string]string{
	"ru": "Russian",
	"en": "English",
	"de": "German",
	"fr": "French",
	"es": "Spanish",
	"uk": "Ukrainian",
	"it": "Italian",
	"pl": "Polish",
}

// LanguageName returns the English name of a language code.
// Unknown codes are returned unchanged.
func LanguageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// Pair returns the key of a language pair, e.g. "ru→en"
func Pair(source, target string) string {
	return strings.ToLower(source) + "→" + strings.ToLower(target)
}

// SystemPrompt returns the translator instruction for a language pair
func SystemPrompt(source, target string) string {
	return fmt.Sprintf(`You are a live interpreter. Translate the following %s text to %s.
Output ONLY the translation, nothing else. Do not add explanations, notes or quotes.
Keep names, numbers and tone. If the text is already %s, output it unchanged.`,
		LanguageName(source), LanguageName(target), LanguageName(target))
}

// cleanTranslation trims whitespace and wrapping quotes from model output
func cleanTranslation(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "\"'«»“”")
	return strings.TrimSpace(s)
}
