package graph

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"astrolynx-be/pkg/embedding"
)

const (
	semanticIndexName = "content_vector_index_object"
	topNodes          = 5
	relationsPerNode  = 10
)

// Neo4jRetriever performs semantic search over the knowledge graph: it embeds
// the question, queries the vector index for the nearest nodes, then expands
// each node with up to ten one-hop relation triples.
type Neo4jRetriever struct {
	driver   neo4j.DriverWithContext
	embedder embedding.EmbeddingProvider
	logger   *log.Logger
}

// NewNeo4jRetriever creates a graph retriever. Both driver and embedder may be
// nil; Retrieve degrades to a sentinel text in that case instead of failing.
func NewNeo4jRetriever(driver neo4j.DriverWithContext, embedder embedding.EmbeddingProvider, logger *log.Logger) *Neo4jRetriever {
	return &Neo4jRetriever{
		driver:   driver,
		embedder: embedder,
		logger:   logger,
	}
}

func (r *Neo4jRetriever) Retrieve(ctx context.Context, question string) string {
	if r.driver == nil {
		r.logger.Printf("[GRAPH] driver not initialized, skipping graph retrieval")
		return SentinelDriverUnavailable
	}
	if r.embedder == nil {
		r.logger.Printf("[GRAPH] embedding provider not initialized, skipping graph retrieval")
		return SentinelEmbeddingsUnavailable
	}

	resp, err := r.embedder.Generate(question, embedding.TaskRetrievalQuery)
	if err != nil {
		r.logger.Printf("[GRAPH] embedding failed: %v", err)
		return fmt.Sprintf("%s %v", sentinelErrorPrefix, err)
	}

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	nodes, err := r.queryNearestNodes(ctx, session, resp.Embedding.Values)
	if err != nil {
		r.logger.Printf("[GRAPH] semantic node query failed: %v", err)
		return fmt.Sprintf("%s %v", sentinelErrorPrefix, err)
	}
	if len(nodes) == 0 {
		r.logger.Printf("[GRAPH] no relevant nodes found in semantic search")
		return SentinelNoMatches
	}

	var sb strings.Builder
	sb.WriteString("Graph Semantic Relations Retrieved:\n")
	for i, node := range nodes {
		sb.WriteString(fmt.Sprintf("\n%d) Node ID: %d, Labels: %s, Score: %v\n",
			i+1, node.id, strings.Join(node.labels, ", "), node.score))

		relations, err := r.queryRelations(ctx, session, node.id)
		if err != nil {
			r.logger.Printf("[GRAPH] relation expansion failed for node %d: %v", node.id, err)
			return fmt.Sprintf("%s %v", sentinelErrorPrefix, err)
		}
		if len(relations) == 0 {
			sb.WriteString("   No relations found.\n")
			continue
		}
		for _, rel := range relations {
			sb.WriteString(fmt.Sprintf("   %s --> %s --> %s\n", rel.sourceName, rel.relationType, rel.targetName))
		}
	}

	summary := sb.String()
	r.logger.Printf("[GRAPH] retrieved %d semantic nodes", len(nodes))
	return summary
}

type semanticNode struct {
	id     int64
	labels []string
	score  float64
}

type relationTriple struct {
	relationType string
	sourceName   string
	targetName   string
}

func (r *Neo4jRetriever) queryNearestNodes(ctx context.Context, session neo4j.SessionWithContext, embeddingValues []float32) ([]semanticNode, error) {
	vector := make([]float64, len(embeddingValues))
	for i, v := range embeddingValues {
		vector[i] = float64(v)
	}

	result, err := session.Run(ctx, `
		CALL db.index.vector.queryNodes($indexName, $k, $embedding)
		YIELD node, score
		RETURN id(node) AS nodeId, labels(node) AS labels, score
	`, map[string]any{
		"indexName": semanticIndexName,
		"k":         topNodes,
		"embedding": vector,
	})
	if err != nil {
		return nil, err
	}

	var nodes []semanticNode
	for result.Next(ctx) {
		record := result.Record()
		nodeID, _ := record.Get("nodeId")
		labels, _ := record.Get("labels")
		score, _ := record.Get("score")

		node := semanticNode{}
		if id, ok := nodeID.(int64); ok {
			node.id = id
		}
		if list, ok := labels.([]any); ok {
			for _, l := range list {
				if s, ok := l.(string); ok {
					node.labels = append(node.labels, s)
				}
			}
		}
		if f, ok := score.(float64); ok {
			node.score = f
		}
		nodes = append(nodes, node)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return nodes, nil
}

func (r *Neo4jRetriever) queryRelations(ctx context.Context, session neo4j.SessionWithContext, nodeID int64) ([]relationTriple, error) {
	result, err := session.Run(ctx, `
		MATCH (n)-[rel]-(m)
		WHERE id(n) = $nodeId
		RETURN
			type(rel) AS relationType,
			coalesce(m.name, m.title, m.id, "Unknown") AS targetName,
			coalesce(n.name, n.title, n.id, "Unknown") AS sourceName
		LIMIT $limit
	`, map[string]any{
		"nodeId": nodeID,
		"limit":  relationsPerNode,
	})
	if err != nil {
		return nil, err
	}

	var relations []relationTriple
	for result.Next(ctx) {
		record := result.Record()
		relType, _ := record.Get("relationType")
		sourceName, _ := record.Get("sourceName")
		targetName, _ := record.Get("targetName")

		triple := relationTriple{}
		if s, ok := relType.(string); ok {
			triple.relationType = s
		}
		triple.sourceName = stringOr(sourceName, "Unknown")
		triple.targetName = stringOr(targetName, "Unknown")
		relations = append(relations, triple)
	}
	if err := result.Err(); err != nil {
		return nil, err
	}
	return relations, nil
}

func stringOr(v any, fallback string) string {
	if s, ok := v.(string); ok && s != "" {
		return s
	}
	if v != nil {
		return fmt.Sprintf("%v", v)
	}
	return fallback
}
