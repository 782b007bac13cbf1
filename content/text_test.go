package content

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextMatches(t *testing.T) {
	txt := ParseText([]byte("version: 1.2.3\nbuild: 42\n"))
	assert.True(t, txt.Exists())
	assert.Equal(t, []string{"1.2.3"}, txt.Matches(regexp.MustCompile(`\d+\.\d+\.\d+`)))
	assert.True(t, txt.MatchesAny(regexp.MustCompile(`build:`)))
}

func TestEmptyTextOnNilInput(t *testing.T) {
	txt := ParseText(nil)
	assert.False(t, txt.Exists())
	assert.Equal(t, "<empty Text>", txt.String())
	assert.Nil(t, txt.Matches(regexp.MustCompile(`.`)))
}

func TestTextEqual(t *testing.T) {
	a := ParseText([]byte("x"))
	b := ParseText([]byte("x"))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(EmptyText))
}
