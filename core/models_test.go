package core

import (
	"strings"
	"testing"
)

func TestChunkID(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		ia, ib   int
		wantSame bool
	}{
		{
			name:     "same url and index",
			a:        "https://www.example.com/help",
			b:        "https://www.example.com/help",
			wantSame: true,
		},
		{
			name:     "query string ignored",
			a:        "https://www.example.com/help?utm_source=x",
			b:        "https://www.example.com/help",
			wantSame: true,
		},
		{
			name:     "fragment ignored",
			a:        "https://www.example.com/help#faq",
			b:        "https://www.example.com/help",
			wantSame: true,
		},
		{
			name:     "different index",
			a:        "https://www.example.com/help",
			b:        "https://www.example.com/help",
			ib:       1,
			wantSame: false,
		},
		{
			name:     "different url",
			a:        "https://www.example.com/help",
			b:        "https://www.example.com/terms",
			wantSame: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idA := ChunkID(tt.a, tt.ia)
			idB := ChunkID(tt.b, tt.ib)
			if (idA == idB) != tt.wantSame {
				t.Errorf("ChunkID(%q,%d)=%q ChunkID(%q,%d)=%q, wantSame=%v", tt.a, tt.ia, idA, tt.b, tt.ib, idB, tt.wantSame)
			}
		})
	}
}

func TestChunkID_Format(t *testing.T) {
	id := ChunkID("https://www.example.com/", 7)
	hash, idx, ok := strings.Cut(id, ":")
	if !ok {
		t.Fatalf("ChunkID() = %q, missing separator", id)
	}
	if len(hash) != 32 {
		t.Errorf("hash length = %d, want 32", len(hash))
	}
	if idx != "7" {
		t.Errorf("index = %q, want 7", idx)
	}
}

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://www.example.com/a?x=1", "https://www.example.com/a"},
		{"https://www.example.com/a?", "https://www.example.com/a"},
		{"https://www.example.com/a#top", "https://www.example.com/a"},
		{"  https://www.example.com/a  ", "https://www.example.com/a"},
		{"https://www.example.com/a", "https://www.example.com/a"},
		{"%zz?bad", "%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeURL(tt.in); got != tt.want {
				t.Errorf("NormalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestMetadata_Fields(t *testing.T) {
	m := Metadata{Text: "body", Category: "web", URL: "https://x.test", ChunkIndex: 2, ChunkCount: 3}
	fields := m.Fields()

	if fields["category"] != "web" {
		t.Errorf("category = %v, want web", fields["category"])
	}
	if fields["chunkIndex"] != 2 {
		t.Errorf("chunkIndex = %v, want 2", fields["chunkIndex"])
	}
	if _, ok := fields["title"]; ok {
		t.Errorf("empty title should be omitted")
	}
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"", MetricCosine, false},
		{"Cosine", MetricCosine, false},
		{"dotproduct", MetricDotProduct, false},
		{"euclidean", MetricEuclidean, false},
		{"manhattan", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMetric(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMetric(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseMetric(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
