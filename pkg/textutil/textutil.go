// Package textutil holds the string handling shared by notifications, the
// legacy mail gateway and imports: {{placeholder}} substitution, markdown
// link rendering and ASCII transliteration.
package textutil

import (
	"html"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	placeholderPattern  = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.]+)\s*\}\}`)
	markdownLinkPattern = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
)

// Render substitutes {{name}} tokens from vars. Unknown names render as "".
func Render(tpl string, vars map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tpl, func(token string) string {
		name := placeholderPattern.FindStringSubmatch(token)[1]
		return vars[name]
	})
}

// RenderHTML converts the template's markdown links to anchors and then
// substitutes HTML-escaped values, so values never add markup or links.
func RenderHTML(tpl string, vars map[string]string) string {
	tpl = MarkdownLinksToHTML(placeholderPattern.ReplaceAllString(tpl, "{{$1}}"))
	escaped := make(map[string]string, len(vars))
	for k, v := range vars {
		escaped[k] = html.EscapeString(v)
	}
	return Render(tpl, escaped)
}

// MarkdownLinksToHTML rewrites [text](url) as <a href="url">text</a>.
func MarkdownLinksToHTML(s string) string {
	return markdownLinkPattern.ReplaceAllString(s, `<a href="$2">$1</a>`)
}

// Placeholders lists the distinct placeholder names used by tpl, in order.
func Placeholders(tpl string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(tpl, -1)
	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		out = append(out, m[1])
	}
	return out
}

// letters that do not decompose under NFD.
var specialLetters = map[rune]string{
	'ø': "o", 'Ø': "O",
	'æ': "ae", 'Æ': "AE",
	'œ': "oe", 'Œ': "OE",
	'ß': "ss",
	'ł': "l", 'Ł': "L",
	'đ': "d", 'Đ': "D",
	'þ': "th", 'Þ': "TH",
	'ð': "d", 'Ð': "D",
	'‘': "'", '’': "'",
	'“': `"`, '”': `"`,
	'–': "-", '—': "-",
	'\u00a0': " ",
}

// ToASCII maps diacritics to their base Latin letters and drops every other
// non-ASCII rune. The legacy mail gateway rejects anything outside ASCII.
func ToASCII(s string) string {
	if isASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if repl, ok := specialLetters[r]; ok {
			b.WriteString(repl)
			continue
		}
		b.WriteRune(r)
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, b.String())
	if err != nil {
		stripped = b.String()
	}
	out := make([]byte, 0, len(stripped))
	for i := 0; i < len(stripped); i++ {
		if stripped[i] < unicode.MaxASCII {
			out = append(out, stripped[i])
		}
	}
	return string(out)
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= unicode.MaxASCII {
			return false
		}
	}
	return true
}
