package graphstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/config"

	"graphrag/internal/apperr"
	"graphrag/internal/model"
)

// Neo4jGraph is the production GraphRepo backend, grounded on the
// neo4j-go-driver/v5 bolt protocol client. It is the default per spec §6
// (NEO4J_URI / user / password).
type Neo4jGraph struct {
	driver neo4j.DriverWithContext
	dbName string
}

// NewNeo4jGraph dials uri with basic auth and verifies connectivity.
func NewNeo4jGraph(ctx context.Context, uri, username, password string) (*Neo4jGraph, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""),
		func(c *config.Config) { c.MaxConnectionLifetime = 0 })
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: create driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: verify connectivity", err)
	}
	return &Neo4jGraph{driver: driver, dbName: "neo4j"}, nil
}

func (g *Neo4jGraph) session(ctx context.Context) neo4j.SessionWithContext {
	return g.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: g.dbName})
}

// Bootstrap creates the uniqueness constraints backing invariants 1 and 4 of
// spec §8.
func (g *Neo4jGraph) Bootstrap(ctx context.Context) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)

	stmts := []string{
		"CREATE CONSTRAINT concept_normalized_name IF NOT EXISTS FOR (c:Concept) REQUIRE c.normalized_name IS UNIQUE",
		"CREATE CONSTRAINT document_id IF NOT EXISTS FOR (d:Document) REQUIRE d.id IS UNIQUE",
		"CREATE CONSTRAINT chunk_id IF NOT EXISTS FOR (c:Chunk) REQUIRE c.id IS UNIQUE",
		"CREATE CONSTRAINT document_content_hash IF NOT EXISTS FOR (d:Document) REQUIRE d.content_hash IS UNIQUE",
	}
	for _, stmt := range stmts {
		if _, err := sess.Run(ctx, stmt, nil); err != nil {
			return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: bootstrap constraint", err)
		}
	}
	return nil
}

func (g *Neo4jGraph) CreateDocument(ctx context.Context, doc model.Document) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, `
		MERGE (d:Document {id: $id})
		SET d.title = $title, d.source = $source, d.document_type = $document_type,
		    d.content_hash = $content_hash, d.word_count = $word_count, d.char_count = $char_count,
		    d.author = $author, d.category = $category, d.publication_date = $publication_date,
		    d.url = $url, d.filename = $filename, d.created_at = $created_at, d.updated_at = $updated_at
	`, map[string]any{
		"id": doc.ID, "title": doc.Title, "source": doc.Source, "document_type": string(doc.DocumentType),
		"content_hash": doc.ContentHash, "word_count": doc.WordCount, "char_count": doc.CharCount,
		"author": doc.Author, "category": doc.Category, "publication_date": doc.PublicationDate,
		"url": doc.URL, "filename": doc.Filename,
		"created_at": doc.CreatedAt.Format(timeFormat), "updated_at": doc.UpdatedAt.Format(timeFormat),
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: create document", err)
	}
	return nil
}

func (g *Neo4jGraph) GetDocument(ctx context.Context, id string) (model.Document, bool, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (d:Document {id: $id}) RETURN d", map[string]any{"id": id})
	if err != nil {
		return model.Document{}, false, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: get document", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return model.Document{}, false, nil
	}
	node, _ := record.Get("d")
	return documentFromNode(node.(neo4j.Node)), true, nil
}

func (g *Neo4jGraph) FindDocumentByHash(ctx context.Context, hash string) (model.Document, bool, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (d:Document {content_hash: $hash}) RETURN d", map[string]any{"hash": hash})
	if err != nil {
		return model.Document{}, false, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: find document by hash", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return model.Document{}, false, nil
	}
	node, _ := record.Get("d")
	return documentFromNode(node.(neo4j.Node)), true, nil
}

func (g *Neo4jGraph) ListDocumentMeta(ctx context.Context) ([]DocumentMeta, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (d:Document) RETURN d.id AS id, d.url AS url, d.title AS title, d.author AS author, d.content_hash AS hash", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: list document meta", err)
	}
	var out []DocumentMeta
	for result.Next(ctx) {
		rec := result.Record()
		m := DocumentMeta{
			ID:     asString(rec.Values[0]),
			FilePath: asString(rec.Values[1]),
			Title:  asString(rec.Values[2]),
			Author: asString(rec.Values[3]),
			Hash:   asString(rec.Values[4]),
		}
		m.TitleLow = strings.ToLower(strings.TrimSpace(m.Title))
		out = append(out, m)
	}
	return out, result.Err()
}

func (g *Neo4jGraph) CreateChunk(ctx context.Context, chunk model.Chunk) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, `
		MERGE (c:Chunk {id: $id})
		SET c.document_id = $document_id, c.chunk_index = $chunk_index, c.text = $text,
		    c.text_hash = $text_hash, c.char_count = $char_count, c.word_count = $word_count
	`, map[string]any{
		"id": chunk.ID, "document_id": chunk.DocumentID, "chunk_index": chunk.ChunkIndex, "text": chunk.Text,
		"text_hash": chunk.TextHash, "char_count": chunk.CharCount, "word_count": chunk.WordCount,
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: create chunk", err)
	}
	return nil
}

func (g *Neo4jGraph) LinkHasChunk(ctx context.Context, documentID, chunkID string) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, `
		MATCH (d:Document {id: $doc}), (c:Chunk {id: $chunk})
		MERGE (d)-[:HAS_CHUNK]->(c)
	`, map[string]any{"doc": documentID, "chunk": chunkID})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: link has_chunk", err)
	}
	return nil
}

func (g *Neo4jGraph) LinkMentionsConcept(ctx context.Context, sourceID, conceptID string) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	_, err := sess.Run(ctx, `
		MATCH (s {id: $source}), (c:Concept {id: $concept})
		MERGE (s)-[:MENTIONS_CONCEPT]->(c)
	`, map[string]any{"source": sourceID, "concept": conceptID})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: link mentions_concept", err)
	}
	return nil
}

// UpsertConcept implements the identity-merge rule of spec §4.5 inside a
// single write transaction so concurrent creations with the same
// normalized_name serialize (spec §5).
func (g *Neo4jGraph) UpsertConcept(ctx context.Context, c *model.Concept) error {
	label := sanitizeLabel(c.Type)
	var chunkIndex any
	if c.ChunkIndex != nil {
		chunkIndex = *c.ChunkIndex
	}
	result, err := neo4j.ExecuteQuery(ctx, g.driver, fmt.Sprintf(`
		MERGE (c:Concept {normalized_name: $normalized_name})
		ON CREATE SET c:%s, c.id = $id, c.name = $name, c.type = $type, c.abbreviation = $abbreviation,
		              c.description = $description, c.source = $source, c.chunk_index = $chunk_index,
		              c.created_at = $now, c.updated_at = $now
		ON MATCH SET c.name = $name,
		             c.type = CASE WHEN $type <> '' THEN $type ELSE c.type END,
		             c.abbreviation = CASE WHEN $abbreviation <> '' THEN $abbreviation ELSE c.abbreviation END,
		             c.description = CASE WHEN $description <> '' THEN $description ELSE c.description END,
		             c.updated_at = $now
		RETURN c.id AS id, c.name AS name, c.type AS type, c.abbreviation AS abbreviation,
		       c.description AS description, c.source AS source
	`, label), map[string]any{
		"normalized_name": c.NormalizedName, "id": c.ID, "name": c.Name, "type": label,
		"abbreviation": c.Abbreviation, "description": c.Description, "source": string(c.Source),
		"chunk_index": chunkIndex, "now": now().Format(timeFormat),
	}, neo4j.EagerResultTransformer, neo4j.ExecuteQueryWithDatabase(g.dbName))
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: upsert concept", err)
	}
	if len(result.Records) == 0 {
		return apperr.New(apperr.Internal, "neo4j: upsert concept returned no record")
	}
	rec := result.Records[0]
	resolvedID, _ := rec.Get("id")
	c.ID = resolvedID.(string)
	return nil
}

func (g *Neo4jGraph) GetConcept(ctx context.Context, id string) (model.Concept, bool, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (c:Concept {id: $id}) RETURN c", map[string]any{"id": id})
	if err != nil {
		return model.Concept{}, false, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: get concept", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return model.Concept{}, false, nil
	}
	node, _ := record.Get("c")
	return conceptFromNode(node.(neo4j.Node)), true, nil
}

func (g *Neo4jGraph) GetConceptByName(ctx context.Context, normalizedName string) (model.Concept, bool, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (c:Concept {normalized_name: $name}) RETURN c", map[string]any{"name": normalizedName})
	if err != nil {
		return model.Concept{}, false, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: get concept by name", err)
	}
	record, err := result.Single(ctx)
	if err != nil {
		return model.Concept{}, false, nil
	}
	node, _ := record.Get("c")
	return conceptFromNode(node.(neo4j.Node)), true, nil
}

func (g *Neo4jGraph) ListConcepts(ctx context.Context) ([]model.Concept, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, "MATCH (c:Concept) RETURN c ORDER BY c.name", nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: list concepts", err)
	}
	var out []model.Concept
	for result.Next(ctx) {
		node, _ := result.Record().Get("c")
		out = append(out, conceptFromNode(node.(neo4j.Node)))
	}
	return out, result.Err()
}

func (g *Neo4jGraph) DocumentsMentioningConcept(ctx context.Context, conceptName string, limit int) ([]model.Document, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	if limit <= 0 {
		limit = 100
	}
	result, err := sess.Run(ctx, `
		MATCH (c:Concept {normalized_name: $name})<-[:MENTIONS_CONCEPT]-(n)
		OPTIONAL MATCH (n)<-[:HAS_CHUNK]-(parent:Document)
		WITH DISTINCT coalesce(parent, n) AS d
		RETURN d LIMIT $limit
	`, map[string]any{"name": strings.ToLower(strings.TrimSpace(conceptName)), "limit": int64(limit)})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: documents mentioning concept", err)
	}
	var out []model.Document
	for result.Next(ctx) {
		node, _ := result.Record().Get("d")
		out = append(out, documentFromNode(node.(neo4j.Node)))
	}
	return out, result.Err()
}

// ChunksMentioningConcept returns the Chunk nodes directly linked to
// conceptName via MENTIONS_CONCEPT, the Cypher counterpart of
// MemoryGraph.ChunksMentioningConcept.
func (g *Neo4jGraph) ChunksMentioningConcept(ctx context.Context, conceptName string, limit int) ([]model.Chunk, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	if limit <= 0 {
		limit = 100
	}
	result, err := sess.Run(ctx, `
		MATCH (c:Concept {normalized_name: $name})<-[:MENTIONS_CONCEPT]-(chunk:Chunk)
		RETURN chunk LIMIT $limit
	`, map[string]any{"name": strings.ToLower(strings.TrimSpace(conceptName)), "limit": int64(limit)})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: chunks mentioning concept", err)
	}
	var out []model.Chunk
	for result.Next(ctx) {
		node, _ := result.Record().Get("chunk")
		out = append(out, chunkFromNode(node.(neo4j.Node)))
	}
	return out, result.Err()
}

// UpsertEdge implements the monotone-strength merge rule of spec §4.5/§3.
func (g *Neo4jGraph) UpsertEdge(ctx context.Context, rel model.Relationship) error {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	query := fmt.Sprintf(`
		MATCH (s {id: $source}), (t {id: $target})
		MERGE (s)-[r:%s]->(t)
		ON CREATE SET r.strength = $strength, r.description = $description, r.method = $method, r.created_at = $now
		ON MATCH SET r.strength = CASE WHEN $strength > r.strength THEN $strength ELSE r.strength END,
		             r.description = $description, r.method = $method, r.updated_at = $now
	`, rel.Kind)
	_, err := sess.Run(ctx, query, map[string]any{
		"source": rel.SourceID, "target": rel.TargetID, "strength": rel.Strength,
		"description": rel.Description, "method": string(rel.Method), "now": now().Format(timeFormat),
	})
	if err != nil {
		return apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: upsert edge", err)
	}
	return nil
}

func (g *Neo4jGraph) RelatedTo(ctx context.Context, conceptID string) ([]WeightedEdge, error) {
	sess := g.session(ctx)
	defer sess.Close(ctx)
	result, err := sess.Run(ctx, `
		MATCH (c:Concept {id: $id})-[r:RELATED_TO]->(t:Concept)
		RETURN t.id AS target, coalesce(r.strength, 0.5) AS strength
	`, map[string]any{"id": conceptID})
	if err != nil {
		return nil, apperr.Wrap(apperr.UpstreamUnavailable, "neo4j: related_to", err)
	}
	var out []WeightedEdge
	for result.Next(ctx) {
		rec := result.Record()
		target, _ := rec.Get("target")
		strength, _ := rec.Get("strength")
		out = append(out, WeightedEdge{TargetID: target.(string), Strength: strength.(float64)})
	}
	return out, result.Err()
}

func (g *Neo4jGraph) Health(ctx context.Context) (bool, string) {
	if err := g.driver.VerifyConnectivity(ctx); err != nil {
		return false, err.Error()
	}
	return true, "connected"
}

func (g *Neo4jGraph) Close(ctx context.Context) error {
	return g.driver.Close(ctx)
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00"

func documentFromNode(n neo4j.Node) model.Document {
	props := n.Props
	return model.Document{
		ID:              asString(props["id"]),
		Title:           asString(props["title"]),
		Source:          asString(props["source"]),
		DocumentType:    model.DocumentType(asString(props["document_type"])),
		ContentHash:     asString(props["content_hash"]),
		WordCount:       asInt(props["word_count"]),
		CharCount:       asInt(props["char_count"]),
		Author:          asString(props["author"]),
		Category:        asString(props["category"]),
		PublicationDate: asString(props["publication_date"]),
		URL:             asString(props["url"]),
		Filename:        asString(props["filename"]),
	}
}

func chunkFromNode(n neo4j.Node) model.Chunk {
	props := n.Props
	return model.Chunk{
		ID:         asString(props["id"]),
		DocumentID: asString(props["document_id"]),
		ChunkIndex: asInt(props["chunk_index"]),
		Text:       asString(props["text"]),
		TextHash:   asString(props["text_hash"]),
		CharCount:  asInt(props["char_count"]),
		WordCount:  asInt(props["word_count"]),
	}
}

func conceptFromNode(n neo4j.Node) model.Concept {
	props := n.Props
	return model.Concept{
		ID:             asString(props["id"]),
		Name:           asString(props["name"]),
		NormalizedName: asString(props["normalized_name"]),
		Type:           asString(props["type"]),
		Abbreviation:   asString(props["abbreviation"]),
		Description:    asString(props["description"]),
		Source:         model.ConceptSource(asString(props["source"])),
		ChunkIndex:     asIntPtr(props["chunk_index"]),
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func asIntPtr(v any) *int {
	if v == nil {
		return nil
	}
	n := asInt(v)
	return &n
}

