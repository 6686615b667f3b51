package core

import (
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// MinContentLength is the minimum cleaned text length for a document to be
// worth chunking and embedding.
const MinContentLength = 200

// Provider names recorded on acquired documents.
const (
	ProviderExa    = "exa"
	ProviderDirect = "direct"
)

// CategoryWeb is the metadata category attached to acquired web content.
const CategoryWeb = "web"

// SourceHash returns a stable hex digest of the normalized source URL.
// Query strings and fragments do not contribute to the hash.
func SourceHash(sourceURL string) string {
	h, _ := blake2b.New(16, nil) // 16 bytes = 128 bits
	h.Write([]byte(NormalizeURL(sourceURL)))
	return hex.EncodeToString(h.Sum(nil))
}

// ChunkID returns the deterministic identifier of the chunk at index within
// the document fetched from sourceURL. Re-ingesting the same document yields
// the same IDs, so upserts overwrite rather than duplicate.
func ChunkID(sourceURL string, index int) string {
	return SourceHash(sourceURL) + ":" + strconv.Itoa(index)
}

// NormalizeURL strips the query string and fragment from a URL. It is the
// identity used for deduplication. Unparseable input is cut at the first
// '?' or '#'.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		if i := strings.IndexAny(raw, "?#"); i >= 0 {
			return raw[:i]
		}
		return raw
	}
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// SourceDocument is a fetched unit of web content. Text is already cleaned
// when produced by the acquirer.
type SourceDocument struct {
	URL      string
	Title    string
	Text     string
	Provider string // "exa" or "direct"
}

// Key returns the deduplication key of the document.
func (d *SourceDocument) Key() string {
	return NormalizeURL(d.URL)
}

// Chunk is a contiguous span of a document's text.
type Chunk struct {
	ID        string
	Text      string
	SourceURL string
	Index     int
	Total     int
}

// Metadata is the payload stored alongside each vector.
type Metadata struct {
	Text       string `json:"text"`
	Category   string `json:"category,omitempty"`
	Topic      string `json:"topic,omitempty"`
	URL        string `json:"url,omitempty"`
	Title      string `json:"title,omitempty"`
	Source     string `json:"source,omitempty"`
	ChunkIndex int    `json:"chunkIndex"`
	ChunkCount int    `json:"chunkCount"`
}

// Fields flattens the metadata into the key space used by metadata filters.
// Empty string fields are omitted.
func (m *Metadata) Fields() map[string]any {
	fields := map[string]any{
		"text":       m.Text,
		"chunkIndex": m.ChunkIndex,
		"chunkCount": m.ChunkCount,
	}
	for k, v := range map[string]string{
		"category": m.Category,
		"topic":    m.Topic,
		"url":      m.URL,
		"title":    m.Title,
		"source":   m.Source,
	} {
		if v != "" {
			fields[k] = v
		}
	}
	return fields
}

// VectorRecord is the unit written to the vector store.
type VectorRecord struct {
	ID       string    `json:"id"`
	Vector   []float32 `json:"vector"`
	Metadata Metadata  `json:"metadata"`
}

// Match is a single vector store query hit.
type Match struct {
	ID       string
	Score    float32
	Metadata Metadata
}

// Passage is one piece of retrieved context.
type Passage struct {
	Text   string
	Score  float32
	Source string // url or seed entry id
}

// IngestStats summarizes an ingestion run. Upserted never exceeds Chunks.
type IngestStats struct {
	Docs     int `json:"docs"`
	Chunks   int `json:"chunks"`
	Upserted int `json:"upserted"`
}

// Turn is a single message of conversation history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Metric names the similarity function of a vector index.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricDotProduct Metric = "dotproduct"
	MetricEuclidean  Metric = "euclidean"
)

// ParseMetric converts a metric name into a Metric. An empty name yields cosine.
func ParseMetric(name string) (Metric, error) {
	switch Metric(strings.ToLower(strings.TrimSpace(name))) {
	case "", MetricCosine:
		return MetricCosine, nil
	case MetricDotProduct:
		return MetricDotProduct, nil
	case MetricEuclidean:
		return MetricEuclidean, nil
	}
	return "", ErrInvalidMetric
}
