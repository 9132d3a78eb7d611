// Package ingest implements Ingestor (spec §4.4): the seven-step pipeline
// that turns raw text plus metadata into Document/Chunk/Concept/Relationship
// graph writes and vector-store upserts, with duplicate short-circuiting and
// per-unit failure isolation.
package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"graphrag/internal/apperr"
	"graphrag/internal/chunker"
	"graphrag/internal/dedupe"
	"graphrag/internal/extract"
	"graphrag/internal/graphstore"
	"graphrag/internal/idservice"
	"graphrag/internal/llm"
	"graphrag/internal/model"
	"graphrag/internal/vectorstore"
)

// Status is the outcome of one ingest call (spec §4.4).
type Status string

const (
	StatusSuccess        Status = "success"
	StatusPartialFailure Status = "partial_failure"
	StatusDuplicate      Status = "duplicate"
	StatusFailure        Status = "failure"
)

// Metadata is the caller-supplied document metadata; FilePath and Title
// feed DuplicateDetector, Concepts feeds the metadata concept-extraction
// pass (spec §4.3 pass 4).
type Metadata struct {
	FilePath        string
	Title           string
	Author          string
	Category        string
	PublicationDate string
	URL             string
	Filename        string
	Source          string
	Domain          string
	Concepts        string
	DocumentType    model.DocumentType
}

// Options controls chunking (spec §4.4).
type Options struct {
	UseChunkingForPDF bool
	ChunkSize         int
	ChunkOverlap      int
}

// UnitDetail records a per-unit outcome, surfaced in a partial_failure or
// failure report (spec §4.4).
type UnitDetail struct {
	ChunkIndex int    `json:"chunk_index"`
	Error      string `json:"error,omitempty"`
}

// Report is the ingest() return shape of spec §4.4.
type Report struct {
	Status                   Status       `json:"status"`
	DocumentID               *string      `json:"document_id"`
	EntitiesCount            int          `json:"entities_count"`
	RelationshipsCount       int          `json:"relationships_count"`
	DuplicateDetectionMethod string       `json:"duplicate_detection_method,omitempty"`
	Details                  []UnitDetail `json:"details,omitempty"`
}

const (
	defaultChunkSize = 1200
	defaultOverlap   = 150
)

// Ingestor wires DuplicateDetector, ConceptExtractor, Chunker, GraphRepo,
// and VectorRepo into the single ingest() operation.
type Ingestor struct {
	Graph     graphstore.GraphRepo
	Vector    vectorstore.VectorRepo
	Gateway   *llm.Gateway
	Detector  *dedupe.Detector
	Extractor *extract.Extractor
	Chunker   chunker.Chunker
	Log       *logrus.Logger
}

func New(graph graphstore.GraphRepo, vector vectorstore.VectorRepo, gateway *llm.Gateway, detector *dedupe.Detector, extractor *extract.Extractor, log *logrus.Logger) *Ingestor {
	return &Ingestor{Graph: graph, Vector: vector, Gateway: gateway, Detector: detector, Extractor: extractor, Chunker: chunker.New(), Log: log}
}

// embed returns text's embedding vector, or nil with a warning if the
// gateway is unset or the embedding call fails — a vector-store failure for
// one unit must not roll back the graph writes already committed (§7).
func (ig *Ingestor) embed(ctx context.Context, text string) []float32 {
	if ig.Gateway == nil {
		return nil
	}
	vecs, err := ig.Gateway.Embed(ctx, []string{text})
	if err != nil || len(vecs) == 0 {
		ig.warn("embed", err)
		return nil
	}
	return vecs[0]
}

// Ingest implements spec §4.4's seven steps. Concept merge (step 5) is
// applied as each unit's concepts are extracted rather than batched at the
// end, so that relationship upserts (step 6) and MENTIONS_CONCEPT links
// (step 4b/c) reference the resolved graph identity, not the transient id
// ConceptExtractor minted before the identity-merge rule of §4.5 ran.
func (ig *Ingestor) Ingest(ctx context.Context, text string, meta Metadata, opts Options) (Report, error) {
	if strings.TrimSpace(text) == "" {
		return Report{}, apperr.New(apperr.BadRequest, "text must not be empty")
	}

	// Step 1: duplicate check.
	hash := dedupe.ContentHash(text)
	if dup, id := ig.Detector.ByContentHash(ctx, hash); dup {
		return duplicateReport(id, "content_hash"), nil
	}
	if meta.FilePath != "" {
		if dup, id := ig.Detector.ByPath(ctx, meta.FilePath); dup {
			return duplicateReport(id, "file_path"), nil
		}
	}
	if meta.Title != "" {
		if dup, id := ig.Detector.ByMetadata(ctx, dedupe.Metadata{Title: meta.Title, Author: meta.Author}); dup {
			return duplicateReport(id, "metadata"), nil
		}
	}

	// Step 2: mint document id, create Document node.
	docType := meta.DocumentType
	if docType == "" {
		docType = model.DocumentTypeText
	}
	doc := model.Document{
		ID:              idservice.NewDocumentID(),
		Title:           meta.Title,
		Source:          meta.Source,
		DocumentType:    docType,
		ContentHash:     hash,
		WordCount:       len(strings.Fields(text)),
		CharCount:       len(text),
		Author:          meta.Author,
		Category:        meta.Category,
		PublicationDate: meta.PublicationDate,
		URL:             meta.URL,
		Filename:        meta.Filename,
	}
	if err := ig.Graph.CreateDocument(ctx, doc); err != nil {
		return failureReport(fmt.Errorf("create document: %w", err)), nil
	}

	// Step 3: decide chunking.
	useChunking := docType == model.DocumentTypePDF && opts.UseChunkingForPDF
	var units []chunker.Unit
	if useChunking {
		chunkSize := opts.ChunkSize
		if chunkSize <= 0 {
			chunkSize = defaultChunkSize
		}
		overlap := opts.ChunkOverlap
		if overlap <= 0 {
			overlap = defaultOverlap
		}
		var err error
		units, err = ig.Chunker.Split(text, chunkSize, overlap)
		if err != nil {
			return failureReport(fmt.Errorf("chunk text: %w", err)), nil
		}
	} else {
		units = []chunker.Unit{{Text: text, Index: 0}}
	}

	entitiesSeen := make(map[string]bool)
	relationshipsSeen := make(map[string]bool)
	var details []UnitDetail
	successCount := 0
	extractMeta := extract.Metadata{Domain: meta.Domain, Concepts: meta.Concepts}

	for _, unit := range units {
		idx := unit.Index
		ok := ig.processUnit(ctx, doc, unit, idx, useChunking, extractMeta, entitiesSeen, relationshipsSeen, &details)
		if ok {
			successCount++
		}
	}

	// Step 7: whole-text vector upsert when not chunking.
	if !useChunking {
		vecMeta := map[string]string{
			"document_id": doc.ID,
			"title":       doc.Title,
			"source":      doc.Source,
		}
		if err := ig.Vector.Upsert(ctx, doc.ID, text, ig.embed(ctx, text), vecMeta); err != nil {
			details = append(details, UnitDetail{ChunkIndex: 0, Error: "vector upsert: " + err.Error()})
		}
	}

	status := StatusSuccess
	if len(details) > 0 {
		if successCount > 0 {
			status = StatusPartialFailure
		} else {
			status = StatusFailure
		}
	}

	docID := doc.ID
	return Report{
		Status:             status,
		DocumentID:         &docID,
		EntitiesCount:      len(entitiesSeen),
		RelationshipsCount: len(relationshipsSeen),
		Details:            details,
	}, nil
}

// processUnit implements step 4 for one unit (chunk, or the whole document
// when not chunking): extraction, concept merge, MENTIONS_CONCEPT linking,
// relationship upsert, and (when chunking) the chunk's own vector upsert.
func (ig *Ingestor) processUnit(ctx context.Context, doc model.Document, unit chunker.Unit, idx int, useChunking bool, extractMeta extract.Metadata, entitiesSeen, relationshipsSeen map[string]bool, details *[]UnitDetail) (success bool) {
	defer func() {
		if r := recover(); r != nil {
			*details = append(*details, UnitDetail{ChunkIndex: idx, Error: fmt.Sprintf("panic: %v", r)})
			success = false
		}
	}()

	result := ig.Extractor.Extract(ctx, unit.Text, extractMeta, &idx)

	// Resolve each extracted concept's final graph identity before linking
	// or referencing it from a relationship (spec §4.5 identity-merge).
	resolved := make(map[string]string, len(result.Concepts)) // extraction id -> graph id
	conceptIDs := make([]string, 0, len(result.Concepts))
	for i := range result.Concepts {
		c := result.Concepts[i]
		extractionID := c.ID
		if err := ig.Graph.UpsertConcept(ctx, &c); err != nil {
			ig.warn("concept merge", err)
			continue
		}
		resolved[extractionID] = c.ID
		entitiesSeen[c.NormalizedName] = true
		conceptIDs = append(conceptIDs, c.ID)
	}

	for _, rel := range result.Relationships {
		sourceID, ok1 := resolved[rel.SourceID]
		targetID, ok2 := resolved[rel.TargetID]
		if !ok1 || !ok2 {
			continue
		}
		rel.SourceID, rel.TargetID = sourceID, targetID
		if err := ig.Graph.UpsertEdge(ctx, rel); err != nil {
			ig.warn("relationship merge", err)
			continue
		}
		relationshipsSeen[sourceID+"|"+targetID+"|"+rel.Kind] = true
	}

	if useChunking {
		chunkID := idservice.NewChunkID(doc.ID, idx)
		chunk := model.Chunk{
			ID:         chunkID,
			DocumentID: doc.ID,
			ChunkIndex: idx,
			Text:       unit.Text,
			TextHash:   dedupe.ContentHash(unit.Text),
			CharCount:  len(unit.Text),
			WordCount:  len(strings.Fields(unit.Text)),
		}
		if err := ig.Graph.CreateChunk(ctx, chunk); err != nil {
			*details = append(*details, UnitDetail{ChunkIndex: idx, Error: "create chunk: " + err.Error()})
			return false
		}
		if err := ig.Graph.LinkHasChunk(ctx, doc.ID, chunkID); err != nil {
			*details = append(*details, UnitDetail{ChunkIndex: idx, Error: "link chunk: " + err.Error()})
			return false
		}
		for _, conceptID := range conceptIDs {
			if err := ig.Graph.LinkMentionsConcept(ctx, chunkID, conceptID); err != nil {
				ig.warn("link mentions (chunk)", err)
			}
		}
		vecMeta := map[string]string{
			"document_id": doc.ID,
			"chunk_id":    chunkID,
			"title":       doc.Title,
			"concept_ids": vectorstore.JoinList(conceptIDs),
		}
		if err := ig.Vector.Upsert(ctx, chunkID, unit.Text, ig.embed(ctx, unit.Text), vecMeta); err != nil {
			*details = append(*details, UnitDetail{ChunkIndex: idx, Error: "vector upsert: " + err.Error()})
			return false
		}
		return true
	}

	for _, conceptID := range conceptIDs {
		if err := ig.Graph.LinkMentionsConcept(ctx, doc.ID, conceptID); err != nil {
			ig.warn("link mentions (document)", err)
		}
	}
	return true
}

func duplicateReport(existingID, method string) Report {
	id := existingID
	return Report{Status: StatusDuplicate, DocumentID: &id, DuplicateDetectionMethod: method}
}

func failureReport(err error) Report {
	return Report{Status: StatusFailure, DocumentID: nil, Details: []UnitDetail{{Error: err.Error()}}}
}

func (ig *Ingestor) warn(stage string, err error) {
	if ig.Log == nil {
		return
	}
	ig.Log.WithError(err).WithField("stage", stage).Warn("ingest step failed, continuing")
}
