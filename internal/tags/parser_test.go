package tags

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name         string
		input        string
		wantTags     []string
		wantRejected []string
		wantExcluded []string
		wantPage     int
	}{
		{
			name:         "mixed separators and case",
			input:        "Hello, World, New\nLine, Space man, Comma,, Quote\"",
			wantTags:     []string{"hello", "world", "new", "line", "space", "man", "comma"},
			wantRejected: []string{"quote\""},
			wantExcluded: []string{},
		},
		{
			name:         "exclusions only",
			input:        "-excludeA, -excludeB",
			wantTags:     []string{},
			wantRejected: []string{},
			wantExcluded: []string{"excludea", "excludeb"},
		},
		{
			name:         "empty input",
			input:        "",
			wantTags:     []string{},
			wantRejected: []string{},
			wantExcluded: []string{},
		},
		{
			name:         "only separators",
			input:        " ,\n\t,, ",
			wantTags:     []string{},
			wantRejected: []string{},
			wantExcluded: []string{},
		},
		{
			name:         "page directives",
			input:        "cat P:2 dog page:7",
			wantTags:     []string{"cat", "dog"},
			wantRejected: []string{},
			wantExcluded: []string{},
			wantPage:     7,
		},
		{
			name:         "malformed page directive is rejected",
			input:        "p:two",
			wantTags:     []string{},
			wantRejected: []string{"p:two"},
			wantExcluded: []string{},
		},
		{
			name:         "duplicates are kept",
			input:        "cat cat CAT",
			wantTags:     []string{"cat", "cat", "cat"},
			wantRejected: []string{},
			wantExcluded: []string{},
		},
		{
			name:         "dash and underscore inside tags",
			input:        "good-boy bad_cat -",
			wantTags:     []string{"good-boy", "bad_cat"},
			wantRejected: []string{},
			wantExcluded: []string{},
		},
		{
			name:         "forbidden characters",
			input:        "a@b #tag ok (x) semi;colon",
			wantTags:     []string{"ok"},
			wantRejected: []string{"a@b", "#tag", "(x)", "semi;colon"},
			wantExcluded: []string{},
		},
		{
			name:         "exclusion is not validated",
			input:        "-we!rd",
			wantTags:     []string{},
			wantRejected: []string{},
			wantExcluded: []string{"we!rd"},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			got := Parse(tc.input)

			assert.Equal(t, tc.wantTags, got.Tags)
			assert.Equal(t, tc.wantRejected, got.Rejected)
			assert.Equal(t, tc.wantExcluded, got.Excluded)
			assert.Equal(t, tc.wantPage, got.Page)
		})
	}
}

func TestParse_PartitionsTokens(t *testing.T) {
	inputs := []string{
		"Hello, World, New\nLine, Space man, Comma,, Quote\"",
		"a b c d$ e% f",
		"UPPER lower MiXeD",
		"x,y,,z  w\r\nq",
		"<b>bold</b> & co",
	}

	for _, input := range inputs {
		got := Parse(input)

		var tokens []string
		for _, token := range split(input) {
			token = strings.ToLower(token)
			if pageDirective.MatchString(token) || strings.HasPrefix(token, ExcludePrefix) {
				continue
			}
			tokens = append(tokens, token)
		}

		assert.Equal(t, len(tokens), len(got.Tags)+len(got.Rejected), "input %q", input)

		rejected := make(map[string]struct{}, len(got.Rejected))
		for _, r := range got.Rejected {
			rejected[r] = struct{}{}
		}
		for _, tag := range got.Tags {
			_, dup := rejected[tag]
			assert.False(t, dup, "tag %q also rejected", tag)
			assert.True(t, Valid(tag))
		}
	}
}

func TestResult_Empty(t *testing.T) {
	assert.True(t, Parse("").Empty())
	assert.True(t, Parse("-only p:3").Empty())
	assert.False(t, Parse("ok").Empty())
	assert.False(t, Parse("b@d").Empty())
}
