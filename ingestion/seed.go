package ingestion

import (
	"context"

	"github.com/poiesic/ragline/core"
	"github.com/poiesic/ragline/seed"
)

// IngestSeed writes the curated seed entries into the index, keyed by entry
// ID. Entries are embedded whole, without chunking. It returns the number of
// records written.
func (p *Pipeline) IngestSeed(ctx context.Context, entries []seed.Entry) (int, error) {
	if err := p.prepare(ctx, false); err != nil {
		return 0, err
	}

	items := make([]pending, 0, len(entries))
	for _, e := range entries {
		if e.ID == "" || e.Content == "" {
			p.logger.Warn("skipping incomplete seed entry", "id", e.ID)
			continue
		}
		category := e.Category
		if category == "" {
			category = "general"
		}
		topic := e.Topic
		if topic == "" {
			topic = "general"
		}
		items = append(items, pending{
			id:   e.ID,
			text: e.Content,
			metadata: core.Metadata{
				Text:       e.Content,
				Category:   category,
				Topic:      topic,
				Source:     "seed",
				ChunkCount: 1,
			},
		})
	}
	if len(items) == 0 {
		return 0, nil
	}

	written, err := p.run(ctx, items, DefaultBatchSize)
	if err != nil {
		return written, err
	}
	p.logger.Info("seeded knowledge base", "entries", len(entries), "upserted", written)
	return written, nil
}
