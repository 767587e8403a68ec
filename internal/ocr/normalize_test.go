package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	assert.Equal(t, "a\nb", NormalizeText("a\r\nb\r\n"))
	assert.Equal(t, "a\n\nb", NormalizeText("a\n\n\n\n\nb"))
	assert.Equal(t, "line", NormalizeText("line   \t\n"))
	assert.Equal(t, "", NormalizeText("  \n \t \n"))
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "hello world", CollapseWhitespace("  hello   world  "))
	assert.Equal(t, "a b c", CollapseWhitespace("a\nb\t c"))
	assert.Equal(t, "", CollapseWhitespace(" \n\t "))
}
