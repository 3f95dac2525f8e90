package render

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownRendersEmphasis(t *testing.T) {
	out := string(Markdown("**bold** and `code`"))

	assert.Contains(t, out, "<strong>bold</strong>")
	assert.Contains(t, out, "<code>code</code>")
}

func TestMarkdownDropsRawHTML(t *testing.T) {
	out := string(Markdown("<script>alert(1)</script>"))

	assert.False(t, strings.Contains(out, "<script>"))
}

func TestMarkdownEmpty(t *testing.T) {
	assert.Equal(t, "", string(Markdown("")))
}
