package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabulary_OrderAndDedup(t *testing.T) {
	v := NewVocabulary([]string{" Intro ", "Details", "", "Intro", "Sources:"})

	assert.Equal(t, []string{"Intro", "Details", "Sources:"}, v.Headings())
	assert.Equal(t, 3, v.Len())
	assert.True(t, v.Contains("Intro"))
	assert.False(t, v.Contains(" Intro "))
	assert.False(t, v.Contains("intro"))
}

func TestVocabulary_HeadingsIsACopy(t *testing.T) {
	v := NewVocabulary([]string{"A"})
	h := v.Headings()
	h[0] = "B"

	assert.True(t, v.Contains("A"))
	assert.Equal(t, []string{"A"}, v.Headings())
}

func TestVocabulary_Nil(t *testing.T) {
	var v *Vocabulary
	assert.False(t, v.Contains("Intro"))
	assert.Nil(t, v.Headings())
	assert.Zero(t, v.Len())
}

func TestDefaultHeadings(t *testing.T) {
	assert.Len(t, DefaultHeadings, 8)
	assert.Equal(t, "Conclusion", DefaultHeadings[6])
	assert.Equal(t, "Sources:", DefaultHeadings[7])
	assert.Equal(t, 8, New().Vocabulary().Len())
}
