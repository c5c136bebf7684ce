// Package retrieval provides an embedded vector store of diagram-syntax
// reference chunks, queried by capability adapters for generation hints.
// Every failure degrades to empty results; retrieval never blocks a turn.
package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	chromem "github.com/philippgille/chromem-go"
	"go.uber.org/zap"
)

// DefaultCollection is the collection holding diagram reference docs.
const DefaultCollection = "mermaid_docs"

// vectorSize is the dimension of the bag-of-tokens embedding.
const vectorSize = 256

// Document is one reference chunk.
type Document struct {
	ID       string
	Content  string
	Metadata map[string]string
}

// Result is one similarity hit.
type Result struct {
	ID         string
	Content    string
	Similarity float32
}

// Config configures the store.
type Config struct {
	// Path enables on-disk persistence; empty keeps the store in memory.
	Path string
	// Collection overrides DefaultCollection.
	Collection string
}

// Store wraps a chromem-go collection with a deterministic local embedder,
// so retrieval works without any external embedding service.
type Store struct {
	db         *chromem.DB
	collection string
	logger     *zap.Logger

	mu    sync.Mutex
	count int
}

// NewStore creates the store. With an empty path the database lives in
// memory only.
func NewStore(cfg Config, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}

	var db *chromem.DB
	var err error
	if cfg.Path != "" {
		db, err = chromem.NewPersistentDB(cfg.Path, false)
		if err != nil {
			return nil, fmt.Errorf("creating persistent vector store: %w", err)
		}
	} else {
		db = chromem.NewDB()
	}

	return &Store{db: db, collection: collection, logger: logger}, nil
}

// Ingest adds reference documents to the collection.
func (s *Store) Ingest(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	col, err := s.db.GetOrCreateCollection(s.collection, nil, embedTokens)
	if err != nil {
		return fmt.Errorf("getting collection %s: %w", s.collection, err)
	}

	chromemDocs := make([]chromem.Document, len(docs))
	for i, d := range docs {
		id := d.ID
		if id == "" {
			id = fmt.Sprintf("doc-%d", i)
		}
		chromemDocs[i] = chromem.Document{
			ID:       id,
			Content:  d.Content,
			Metadata: d.Metadata,
		}
	}
	if err := col.AddDocuments(ctx, chromemDocs, 1); err != nil {
		return fmt.Errorf("adding documents: %w", err)
	}

	s.mu.Lock()
	s.count += len(docs)
	s.mu.Unlock()
	return nil
}

// Query returns up to k similar documents. Errors and an empty collection
// degrade to nil results.
func (s *Store) Query(ctx context.Context, text string, k int) []Result {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()
	if count == 0 || k <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}
	if k > count {
		k = count
	}

	col, err := s.db.GetOrCreateCollection(s.collection, nil, embedTokens)
	if err != nil {
		s.logger.Warn("vector store collection unavailable", zap.Error(err))
		return nil
	}

	hits, err := col.Query(ctx, text, k, nil, nil)
	if err != nil {
		s.logger.Warn("vector store query failed", zap.Error(err))
		return nil
	}

	results := make([]Result, len(hits))
	for i, h := range hits {
		results[i] = Result{ID: h.ID, Content: h.Content, Similarity: h.Similarity}
	}
	return results
}

// embedTokens is a deterministic local embedding: tokens hash into a fixed
// number of buckets and the vector is L2-normalized. It captures lexical
// overlap only, which is enough for syntax-reference lookup and needs no
// network access.
func embedTokens(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, vectorSize)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(token))
		vec[h.Sum32()%vectorSize]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		// chromem rejects zero vectors; bias one bucket for empty input.
		vec[0] = 1
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec, nil
}

// SyntaxReference returns the built-in Mermaid syntax chunks ingested at
// startup when retrieval is enabled.
func SyntaxReference() []Document {
	return []Document{
		{
			ID:      "mermaid-flowchart",
			Content: "flowchart TD declares a top-down flowchart. Nodes use id[Label] and edges use -->. Dotted edges use -. text .->.",
			Metadata: map[string]string{
				"kind": "flowchart",
			},
		},
		{
			ID:      "mermaid-erdiagram",
			Content: "erDiagram declares an entity relationship diagram. Cardinality uses ||--o{ between entities, with a relationship label after a colon.",
			Metadata: map[string]string{
				"kind": "entity_relationship",
			},
		},
		{
			ID:      "mermaid-sequence",
			Content: "sequenceDiagram declares participants with the participant keyword. Solid arrows use ->> and reply arrows use -->>.",
			Metadata: map[string]string{
				"kind": "sequence",
			},
		},
		{
			ID:      "mermaid-gantt",
			Content: "gantt declares a Gantt chart with dateFormat, sections, and tasks with start dates and durations.",
			Metadata: map[string]string{
				"kind": "gantt",
			},
		},
	}
}
