package chunking

import (
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// DefaultMaxLength is the chunk length bound used when none is given.
const DefaultMaxLength = 900

var sentence = regexp.MustCompile(`[^.!?]*[.!?]+\s*`)

// Sentences splits text into sentence units. Text after the last terminal
// punctuation mark is returned as a final unit.
func Sentences(text string) []string {
	var units []string
	end := 0
	for _, loc := range sentence.FindAllStringIndex(text, -1) {
		units = append(units, text[loc[0]:loc[1]])
		end = loc[1]
	}
	if end < len(text) {
		units = append(units, text[end:])
	}
	return units
}

// Split breaks text into chunks of at most maxLength bytes. A maxLength of
// zero or less selects DefaultMaxLength. Whitespace-only chunks are dropped.
func Split(text string, maxLength int) []string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	var chunks []string
	var buf strings.Builder
	flush := func() {
		if strings.TrimSpace(buf.String()) != "" {
			chunks = append(chunks, buf.String())
		}
		buf.Reset()
	}

	for _, unit := range Sentences(text) {
		if buf.Len() > 0 && buf.Len()+len(unit) > maxLength {
			flush()
		}
		buf.WriteString(unit)
	}
	flush()

	return chunks
}

// Splitter implements textsplitter.TextSplitter.
type Splitter struct {
	MaxLength int
}

var _ textsplitter.TextSplitter = Splitter{}

// NewSplitter returns a Splitter bounded by maxLength.
func NewSplitter(maxLength int) Splitter {
	return Splitter{MaxLength: maxLength}
}

// SplitText implements textsplitter.TextSplitter.
func (s Splitter) SplitText(text string) ([]string, error) {
	return Split(text, s.MaxLength), nil
}

// SplitDocuments chunks langchaingo documents, copying metadata onto each chunk.
func SplitDocuments(docs []schema.Document, maxLength int) ([]schema.Document, error) {
	return textsplitter.SplitDocuments(NewSplitter(maxLength), docs)
}
