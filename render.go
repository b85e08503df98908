package notifier

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Render substitutes the type's placeholder tokens into the template body
// using the record's data. Substitution is case-insensitive literal token
// replacement of all occurrences, not a templating-language evaluator.
// A data field that is absent renders as the empty string. Unknown types have
// no placeholder set and the body is returned untouched.
func Render(template string, r Record) string {
	v, ok := variantFor(r.Type)
	if !ok {
		return template
	}

	out := template
	for _, name := range v.Placeholders {
		out = replaceToken(out, name, stringify(r.Data[name]))
	}

	return out
}

func replaceToken(s, name, value string) string {
	token := "{" + name + "}"

	var b strings.Builder
	for {
		i, n := indexFold(s, token)
		if i < 0 {
			b.WriteString(s)
			return b.String()
		}

		b.WriteString(s[:i])
		b.WriteString(value)
		s = s[i+n:]
	}
}

// indexFold returns the byte offset and byte length of the first
// case-insensitive occurrence of token in s. Matching walks s directly so
// offsets stay valid when case folding changes a rune's encoded length.
func indexFold(s, token string) (start, length int) {
	for i := range s {
		if ok, n := hasPrefixFold(s[i:], token); ok {
			return i, n
		}
	}

	return -1, 0
}

func hasPrefixFold(s, prefix string) (bool, int) {
	var n int
	for _, pr := range prefix {
		r, size := utf8.DecodeRuneInString(s[n:])
		if size == 0 {
			return false, 0
		}

		if r != pr && unicode.ToLower(r) != unicode.ToLower(pr) {
			return false, 0
		}

		n += size
	}

	return true, n
}

func stringify(v any) string {
	if v == nil {
		return ""
	}

	if s, ok := v.(string); ok {
		return s
	}

	return fmt.Sprintf("%v", v)
}
