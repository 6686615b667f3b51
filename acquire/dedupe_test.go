package acquire

import (
	"testing"

	"github.com/poiesic/ragline/core"
	"github.com/stretchr/testify/assert"
)

func TestDedupe(t *testing.T) {
	docs := []*core.SourceDocument{
		{URL: "https://ex.com/a?x=1", Title: "first"},
		{URL: "https://ex.com/b"},
		{URL: "https://ex.com/a#frag", Title: "second"},
		{URL: "https://ex.com/a", Title: "third"},
	}

	out := Dedupe(docs)

	assert.Len(t, out, 2)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "https://ex.com/b", out[1].URL)
}

func TestDedupe_Empty(t *testing.T) {
	assert.Empty(t, Dedupe(nil))
}
