package http

import (
	"github.com/fyrsmithlabs/ragd/internal/ingest"
	"github.com/fyrsmithlabs/ragd/internal/llm"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

func toQueryResponse(resp *llm.Response) v1.QueryResponse {
	sources := make([]v1.Source, len(resp.Sources))
	for i, r := range resp.Sources {
		sources[i] = v1.Source{
			Content:    r.Content,
			Metadata:   r.Metadata.Map(),
			Similarity: r.Similarity,
		}
	}
	return v1.QueryResponse{Answer: resp.Answer, Sources: sources}
}

func toProcessedDocument(p *ingest.Processed) v1.ProcessedDocument {
	chunks := make([]v1.Chunk, len(p.Chunks))
	for i, c := range p.Chunks {
		chunks[i] = v1.Chunk{PageContent: c.PageContent, Metadata: c.Metadata.Map()}
	}
	return v1.ProcessedDocument{
		Content:  p.Content,
		Chunks:   chunks,
		Metadata: p.Metadata.Map(),
	}
}
