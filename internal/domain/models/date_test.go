package models

import (
	"github.com/stretchr/testify/assert"
	"testing"
	"time"
)

func Test_ParsePostingDate_KnownLayouts_ShouldParse(t *testing.T) {
	assert := assert.New(t)
	expected := time.Date(2025, time.March, 5, 0, 0, 0, 0, time.UTC)

	for _, input := range []string{
		"2025-03-05",
		"2025-03-05T10:11:12Z",
		"March 5, 2025",
		"Posted March 5, 2025",
		"Mar 5, 2025",
		"5 March 2025",
		"5 Mar 2025",
	} {
		parsed := ParsePostingDate(input)
		if assert.NotNil(parsed, input) {
			assert.True(expected.Equal(*parsed), input)
		}
	}
}

func Test_ParsePostingDate_Garbage_ShouldReturnNil(t *testing.T) {
	assert.Nil(t, ParsePostingDate(""))
	assert.Nil(t, ParsePostingDate("yesterday"))
}

func Test_Source_ToSource_ShouldAcceptAliases(t *testing.T) {
	assert := assert.New(t)

	s, err := ToSource("amazon_api")
	assert.NoError(err)
	assert.Equal(SourceAmazonAPI, s)

	s, err = ToSource("AmazonSelenium")
	assert.NoError(err)
	assert.Equal(SourceAmazon, s)

	s, err = ToSource("TheirStack")
	assert.NoError(err)
	assert.Equal(SourceTheirStack, s)
	assert.Equal("theirstack", s.Key())

	_, err = ToSource("linkedin")
	assert.Error(err)
}
