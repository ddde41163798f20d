package vectorstore

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"astrolynx-be/pkg/embedding"
	"astrolynx-be/pkg/store"
)

type similarityRow struct {
	ID         string  `gorm:"column:id"`
	Content    string  `gorm:"column:content"`
	Source     string  `gorm:"column:source"`
	Similarity float64 `gorm:"column:similarity"`
}

// PgVectorSearcher runs cosine top-k search over the document_embeddings
// table. Each Search call embeds the query first, so latency is one embedding
// round-trip plus one SQL query.
type PgVectorSearcher struct {
	db       *gorm.DB
	embedder embedding.EmbeddingProvider
	logger   *log.Logger
}

func NewPgVectorSearcher(db *gorm.DB, embedder embedding.EmbeddingProvider, logger *log.Logger) *PgVectorSearcher {
	return &PgVectorSearcher{
		db:       db,
		embedder: embedder,
		logger:   logger,
	}
}

func (s *PgVectorSearcher) Search(ctx context.Context, query string, k int) ([]store.Document, error) {
	if k <= 0 {
		return nil, nil
	}

	resp, err := s.embedder.Generate(query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	var rows []similarityRow
	err = s.db.WithContext(ctx).
		Table("document_embeddings").
		Select("document_embeddings.id, document_embeddings.content, document_embeddings.source, 1 - (embedding_value <=> ?) as similarity", pgvector.NewVector(resp.Embedding.Values)).
		Order("similarity DESC").
		Limit(k).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	docs := make([]store.Document, 0, len(rows))
	for i, row := range rows {
		source := row.Source
		if source == "" {
			source = store.SourceVectorStore
		}
		id := row.ID
		if id == "" {
			id = "doc-" + strconv.Itoa(i)
		}
		docs = append(docs, store.Document{
			ID:      id,
			Content: row.Content,
			Source:  source,
			Score:   row.Similarity,
		})
	}

	if s.logger != nil {
		s.logger.Printf("[VECTOR] search returned %d documents (k=%d)", len(docs), k)
	}
	return docs, nil
}
