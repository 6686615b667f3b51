// Package ragline is a retrieval-augmented knowledge base.
//
// Knowledge ties the pieces together: web content is acquired and cleaned
// (package acquire), chunked and embedded into a vector index (package
// ingestion), retrieved by similarity with a keyword fallback (package
// search), and used to ground generated answers (package answer).
//
// Open builds every component from a config.Config:
//
//	cfg, _ := config.Load("ragline.yaml")
//	cfg.ApplyEnv()
//	kb, err := ragline.Open(cfg)
//	if err != nil {
//		return err
//	}
//	defer kb.Close()
//
//	stats, err := kb.Refresh(ctx, 15, nil)
//	resp := kb.Ask(ctx, "What are the fees?", nil)
package ragline
