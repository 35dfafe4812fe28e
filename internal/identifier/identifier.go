// Package identifier implements the generated-identifier policy CodeGenerator
// applies to every Python name it emits into TypeScript source (spec §4.2).
//
// The pipeline is, in order: NFD-normalize and strip combining marks;
// replace disallowed characters (with a small ASCII-fallback table checked
// first); prefix a leading digit; case-convert snake_case to camelCase
// unless preserveCase is requested; escape reserved keywords; default empty
// input to "_".
package identifier

import (
	"strings"
	"unicode"
)

// asciiFallback maps specific non-ASCII runes to an ASCII-safe spelling,
// checked before the generic strip-combining-marks pass. Exactly the set
// named in spec §4.2.
var asciiFallback = map[rune]string{
	'ñ': "n",
	'ü': "u",
	'ß': "ss",
	'æ': "ae",
	'œ': "oe",
	'ø': "o",
	'€': "euro",
}

// reserved is the closed set of TypeScript keywords an emitted identifier
// must never collide with (spec §4.2).
var reserved = map[string]bool{
	"default": true, "delete": true, "new": true, "class": true, "function": true,
	"var": true, "let": true, "const": true, "enum": true, "export": true,
	"import": true, "return": true, "extends": true, "implements": true,
	"interface": true, "package": true, "private": true, "protected": true,
	"public": true, "static": true, "yield": true, "await": true, "async": true,
	"null": true, "true": true, "false": true,
}

// nfdDecompositions covers the combining-mark decompositions this package
// needs to strip for the Latin-1 Supplement letters spec §4.2's examples
// draw from (NFD splits e.g. 'é' into 'e' + U+0301 COMBINING ACUTE ACCENT).
// Runes outside this table that already carry no combining marks pass
// through unchanged; runes with marks this table doesn't know about fall
// through to the hex-codepoint escape, same as any other non-ASCII rune.
var nfdDecompositions = map[rune]rune{
	'á': 'a', 'à': 'a', 'â': 'a', 'ä': 'a', 'ã': 'a', 'å': 'a',
	'é': 'e', 'è': 'e', 'ê': 'e', 'ë': 'e',
	'í': 'i', 'ì': 'i', 'î': 'i', 'ï': 'i',
	'ó': 'o', 'ò': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ú': 'u', 'ù': 'u', 'û': 'u', 'ū': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ç': 'c', 'ñ': 'n',
	'Á': 'A', 'À': 'A', 'Â': 'A', 'Ä': 'A', 'Ã': 'A', 'Å': 'A',
	'É': 'E', 'È': 'E', 'Ê': 'E', 'Ë': 'E',
	'Í': 'I', 'Ì': 'I', 'Î': 'I', 'Ï': 'I',
	'Ó': 'O', 'Ò': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ú': 'U', 'Ù': 'U', 'Û': 'U', 'Ü': 'U',
	'Ç': 'C', 'Ñ': 'N',
}

// normalizeAndFold applies NFD-style decomposition/stripping and the
// ASCII-fallback table, leaving every other rune (including the ones the
// ASCII-fallback table intercepts first) untouched for the caller to
// classify.
func normalizeAndFold(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.Is(unicode.Mn, r) {
			// A combining mark already split off its base letter.
			continue
		}
		if repl, ok := asciiFallback[r]; ok {
			b.WriteString(repl)
			continue
		}
		if folded, ok := nfdDecompositions[r]; ok {
			b.WriteRune(folded)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sanitizeChars replaces every rune outside [A-Za-z0-9_] with '_', except
// that remaining non-ASCII runes are instead rendered as their hex
// codepoint (so information isn't silently collapsed to underscores).
func sanitizeChars(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		case r < unicode.MaxASCII:
			b.WriteByte('_')
		default:
			b.WriteString(hexCodepoint(r))
		}
	}
	return b.String()
}

func hexCodepoint(r rune) string {
	const hexdigits = "0123456789abcdef"
	if r == 0 {
		return "0"
	}
	var digits []byte
	for r > 0 {
		digits = append([]byte{hexdigits[r&0xf]}, digits...)
		r >>= 4
	}
	return string(digits)
}

// toCamelCase converts snake_case to camelCase. A run of underscores is
// dropped and uppercases the following letter once; an underscore at
// index 0 is kept as a literal, and a trailing run collapses to one
// literal underscore.
func toCamelCase(name string) string {
	var b strings.Builder
	upperNext := false
	for i, r := range name {
		if r == '_' {
			if i == 0 {
				b.WriteRune(r)
				continue
			}
			upperNext = true
			continue
		}
		if upperNext {
			b.WriteRune(unicode.ToUpper(r))
			upperNext = false
			continue
		}
		b.WriteRune(r)
	}
	if upperNext {
		// Trailing underscore(s): preserve as literal underscore.
		b.WriteRune('_')
	}
	return b.String()
}

// Options controls Escape's behavior beyond the default pipeline.
type Options struct {
	// PreserveCase skips the snake_case -> camelCase conversion. codegen
	// never sets it: structural-type property names are camelCased, and
	// qualified bridge-call paths are not passed through Escape at all.
	PreserveCase bool
}

// Escape runs the full identifier policy over name and returns a valid,
// non-reserved TypeScript identifier.
func Escape(name string, opts Options) string {
	if name == "" {
		return "_"
	}

	folded := normalizeAndFold(name)
	sanitized := sanitizeChars(folded)

	if sanitized == "" {
		return "_"
	}

	if sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + sanitized
	}

	cased := sanitized
	if !opts.PreserveCase {
		cased = toCamelCase(sanitized)
	}

	if reserved[cased] {
		cased = "_" + cased + "_"
	}

	return cased
}

// IsReserved reports whether name is a reserved TypeScript keyword in the
// closed set this package escapes against.
func IsReserved(name string) bool { return reserved[name] }
