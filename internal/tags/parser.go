// Package tags turns free text typed by a user into normalized sticker tags.
package tags

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// ExcludePrefix marks a token as an exclusion directive.
const ExcludePrefix = "-"

// forbiddenChars lists every character a tag may not contain.
const forbiddenChars = " \n\r\t,\"\\/*'`@#$%^&()=+[]{}|;:<>?~"

var pageDirective = regexp.MustCompile(`^(?:p|page):(\d+)$`)

// Result is the outcome of parsing a piece of text.
type Result struct {
	// Tags are the accepted, lower-cased tags in input order.
	Tags []string
	// Rejected are tokens that contain forbidden characters.
	Rejected []string
	// Excluded are exclusion directives with the leading dash stripped.
	Excluded []string
	// Page is the requested result page, zero when no page directive was given.
	Page int
}

// Empty reports whether the text yielded neither accepted nor rejected tags.
func (r Result) Empty() bool {
	return len(r.Tags) == 0 && len(r.Rejected) == 0
}

// Parse splits text on runs of whitespace and commas and sorts every token into
// accepted tags, rejected tokens, exclusions and a page directive.
// Duplicates are kept; it never fails.
func Parse(text string) Result {
	result := Result{
		Tags:     []string{},
		Rejected: []string{},
		Excluded: []string{},
	}

	for _, token := range split(text) {
		token = strings.ToLower(token)

		if m := pageDirective.FindStringSubmatch(token); m != nil {
			if page, err := strconv.Atoi(m[1]); err == nil {
				result.Page = page
			}
			continue
		}

		if strings.HasPrefix(token, ExcludePrefix) {
			if excluded := strings.TrimPrefix(token, ExcludePrefix); excluded != "" {
				result.Excluded = append(result.Excluded, excluded)
			}
			continue
		}

		if !Valid(token) {
			result.Rejected = append(result.Rejected, token)
			continue
		}

		result.Tags = append(result.Tags, token)
	}

	return result
}

// Valid reports whether tag is non-empty and free of forbidden characters.
func Valid(tag string) bool {
	return tag != "" && !strings.ContainsAny(tag, forbiddenChars)
}

func split(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}
