package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"graphrag/internal/batch"
	"graphrag/internal/ingest"
	"graphrag/internal/jobs"
	"graphrag/internal/model"
)

type toolFunc func(ctx context.Context, s *Server, raw json.RawMessage) map[string]any

var toolHandlers = map[string]toolFunc{
	"ping":                   handlePing,
	"search":                 handleSearch,
	"concept":                handleConcept,
	"documents":              handleDocuments,
	"books-by-concept":       handleBooksByConcept,
	"related-concepts":       handleRelatedConcepts,
	"passages-about-concept": handlePassagesAboutConcept,
	"add_bug":                handleAddBug,
	"add-folder":             handleAddFolder,
	"job-status":             handleJobStatus,
	"list-jobs":              handleListJobs,
	"cancel-job":             handleCancelJob,
}

func missingParam(name string) map[string]any {
	return map[string]any{"error": "Missing required parameter: " + name}
}

func handlePing(ctx context.Context, s *Server, _ json.RawMessage) map[string]any {
	neo4jOK, _ := s.Graph.Health(ctx)
	vectorOK, _ := s.Vector.CheckHealth(ctx)
	return map[string]any{
		"message":             "Pong!",
		"timestamp":           float64(time.Now().Unix()),
		"vector_db_connected": vectorOK,
		"neo4j_connected":     neo4jOK,
		"status":              "success",
	}
}

type searchArgs struct {
	Query    string `json:"query"`
	NResults *int   `json:"n_results"`
	MaxHops  *int   `json:"max_hops"`
}

func handleSearch(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args searchArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.Query) == "" {
		return missingParam("query")
	}
	n, hops := 5, 2
	if args.NResults != nil {
		n = *args.NResults
	}
	if args.MaxHops != nil {
		hops = *args.MaxHops
	}

	results, err := s.Searcher.HybridSearch(ctx, args.Query, n, hops, true)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}

	vectorResults := make([]map[string]any, 0, len(results.VectorResults))
	for _, hit := range results.VectorResults {
		vectorResults = append(vectorResults, map[string]any{
			"id": hit.ID, "document": hit.Document, "metadata": hit.Metadata, "distance": hit.Distance,
		})
	}
	graphResults := make([]map[string]any, 0, len(results.GraphResults))
	for _, g := range results.GraphResults {
		graphResults = append(graphResults, map[string]any{
			"id": g.ID, "name": g.Name, "relevance_score": g.RelevanceScore,
		})
	}
	return map[string]any{"vector_results": vectorResults, "graph_results": graphResults}
}

type conceptArgs struct {
	ConceptName string `json:"concept_name"`
	Limit       *int   `json:"limit"`
}

func handleConcept(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args conceptArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.ConceptName) == "" {
		return missingParam("concept_name")
	}
	name := strings.ToLower(strings.TrimSpace(args.ConceptName))

	concept, ok, err := s.Graph.GetConceptByName(ctx, name)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if !ok {
		return map[string]any{"error": "Concept not found: " + args.ConceptName}
	}

	related := relatedConceptsOf(ctx, s, concept.ID, 0)

	docs, err := s.Graph.DocumentsMentioningConcept(ctx, name, 5)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	documents := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		documents = append(documents, map[string]any{"title": d.Title, "id": d.ID})
	}

	return map[string]any{
		"name":             concept.Name,
		"category":         concept.Type,
		"related_concepts": related,
		"documents":        documents,
	}
}

type documentsArgs struct {
	ConceptName string `json:"concept_name"`
	Limit       *int   `json:"limit"`
}

func handleDocuments(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args documentsArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.ConceptName) == "" {
		return missingParam("concept_name")
	}
	limit := 5
	if args.Limit != nil {
		limit = *args.Limit
	}
	docs, err := s.Graph.DocumentsMentioningConcept(ctx, args.ConceptName, limit)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"documents": documentSummaries(docs)}
}

func handleBooksByConcept(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args documentsArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.ConceptName) == "" {
		return missingParam("concept_name")
	}
	limit := 5
	if args.Limit != nil {
		limit = *args.Limit
	}
	// Our Document model has no "book" DocumentType (the original's schema
	// does); Category carries the same free-text classification the caller
	// would have set to "book" at ingest time, so it stands in for the
	// original's document_type = 'book' filter.
	docs, err := s.Graph.DocumentsMentioningConcept(ctx, args.ConceptName, 0)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var books []model.Document
	for _, d := range docs {
		if strings.EqualFold(strings.TrimSpace(d.Category), "book") {
			books = append(books, d)
			if limit > 0 && len(books) >= limit {
				break
			}
		}
	}
	return map[string]any{"books": documentSummaries(books)}
}

func documentSummaries(docs []model.Document) []map[string]any {
	out := make([]map[string]any, 0, len(docs))
	for _, d := range docs {
		out = append(out, map[string]any{
			"title": d.Title, "id": d.ID, "author": d.Author, "year": d.PublicationDate,
		})
	}
	return out
}

func handleRelatedConcepts(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args conceptArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.ConceptName) == "" {
		return missingParam("concept_name")
	}
	limit := 10
	if args.Limit != nil {
		limit = *args.Limit
	}
	name := strings.ToLower(strings.TrimSpace(args.ConceptName))
	concept, ok, err := s.Graph.GetConceptByName(ctx, name)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if !ok {
		return map[string]any{"related_concepts": []map[string]any{}}
	}
	return map[string]any{"related_concepts": relatedConceptsOf(ctx, s, concept.ID, limit)}
}

// relatedConceptsOf resolves target names and sorts by descending strength,
// shared by the concept and related-concepts tools. limit <= 0 means no cap.
func relatedConceptsOf(ctx context.Context, s *Server, conceptID string, limit int) []map[string]any {
	edges, err := s.Graph.RelatedTo(ctx, conceptID)
	if err != nil {
		return nil
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Strength > edges[j].Strength })
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}
	out := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		name := e.TargetID
		if target, ok, err := s.Graph.GetConcept(ctx, e.TargetID); err == nil && ok {
			name = target.Name
		}
		out = append(out, map[string]any{"name": name, "strength": e.Strength})
	}
	return out
}

func handlePassagesAboutConcept(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args conceptArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.ConceptName) == "" {
		return missingParam("concept_name")
	}
	limit := 5
	if args.Limit != nil {
		limit = *args.Limit
	}
	chunks, err := s.Graph.ChunksMentioningConcept(ctx, args.ConceptName, limit)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	passages := make([]map[string]any, 0, len(chunks))
	for _, c := range chunks {
		passages = append(passages, map[string]any{
			"text": c.Text, "document_id": c.DocumentID, "chunk_index": c.ChunkIndex,
		})
	}
	return map[string]any{"passages": passages}
}

// ingestMetadataFromAny decodes the loosely-typed "metadata" object MCP
// tool callers send into the Ingestor's Metadata struct. Unknown or
// mistyped keys are ignored rather than rejected, since the wire schema
// declares metadata as an open object (spec §6).
func ingestMetadataFromAny(m map[string]any) ingest.Metadata {
	get := func(k string) string {
		if v, ok := m[k].(string); ok {
			return v
		}
		return ""
	}
	return ingest.Metadata{
		Title:           get("title"),
		Author:          get("author"),
		Category:        get("category"),
		PublicationDate: get("publication_date"),
		URL:             get("url"),
		Filename:        get("filename"),
		Source:          get("source"),
		Domain:          get("domain"),
		Concepts:        get("concepts"),
		DocumentType:    model.DocumentType(get("document_type")),
	}
}

type addBugArgs struct {
	Description string         `json:"description"`
	Cause       string         `json:"cause"`
	Metadata    map[string]any `json:"metadata"`
	Async       *bool          `json:"async"`
}

func handleAddBug(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args addBugArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.Description) == "" || strings.TrimSpace(args.Cause) == "" {
		return map[string]any{"error": "'description' and 'cause' are required"}
	}
	async := true
	if args.Async != nil {
		async = *args.Async
	}
	if args.Metadata == nil {
		args.Metadata = map[string]any{}
	}
	if _, ok := args.Metadata["title"]; !ok {
		args.Metadata["title"] = args.Description
	}

	text := "Description: " + args.Description + "\nCause: " + args.Cause
	meta := ingestMetadataFromAny(args.Metadata)

	if async {
		job := s.Jobs.Create(model.JobTypeAddBug, map[string]any{
			"description": args.Description, "cause": args.Cause, "metadata": args.Metadata,
		}, "")
		s.Jobs.Submit(job, func(ctx context.Context, h *jobs.Handle) (any, error) {
			return s.Ingestor.Ingest(ctx, text, meta, ingest.Options{UseChunkingForPDF: true})
		})
		return map[string]any{"status": "accepted", "message": "Bug processing started", "job_id": job.JobID, "bug_id": nil}
	}

	report, err := s.Ingestor.Ingest(ctx, text, meta, ingest.Options{UseChunkingForPDF: true})
	if err != nil {
		return map[string]any{"status": "failure", "error": err.Error(), "bug_id": nil}
	}
	return bugResultFromReport(report)
}

func bugResultFromReport(report ingest.Report) map[string]any {
	switch report.Status {
	case ingest.StatusDuplicate:
		return map[string]any{
			"status": "duplicate", "message": "Bug is a duplicate and was not added.",
			"bug_id": report.DocumentID, "duplicate_detection_method": report.DuplicateDetectionMethod,
		}
	case ingest.StatusFailure:
		return map[string]any{"status": "failure", "error": unitErrors(report), "bug_id": nil}
	default:
		return map[string]any{"status": "success", "message": "Bug added successfully.", "bug_id": report.DocumentID}
	}
}

func unitErrors(report ingest.Report) string {
	if len(report.Details) == 0 {
		return "bug processing failed"
	}
	return report.Details[0].Error
}

type addFolderArgs struct {
	FolderPath string         `json:"folder_path"`
	Metadata   map[string]any `json:"metadata"`
	Async      *bool          `json:"async"`
}

func handleAddFolder(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args addFolderArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.FolderPath) == "" {
		return missingParam("folder_path")
	}
	info, err := os.Stat(args.FolderPath)
	if err != nil || !info.IsDir() {
		return map[string]any{"error": "Folder not found: " + args.FolderPath}
	}

	files, err := batch.Discover(args.FolderPath, true, batch.DefaultFileTypes)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	if len(files) == 0 {
		return map[string]any{"status": "completed", "message": "No supported files found in folder: " + args.FolderPath}
	}

	async := true
	if args.Async != nil {
		async = *args.Async
	}
	baseMeta := ingestMetadataFromAny(args.Metadata)

	if async {
		job := s.Jobs.Create(model.JobTypeAddFolder, map[string]any{
			"folder_path": args.FolderPath, "total_files": len(files), "metadata": args.Metadata,
		}, "")
		// The original server created this job but never ran it (a TODO left
		// in mcp_server.py's handle_add_folder); ProcessFolder already exists
		// here for the HTTP /folders route, so the async path is completed
		// rather than left stubbed.
		s.Jobs.Submit(job, func(ctx context.Context, h *jobs.Handle) (any, error) {
			return batch.ProcessFolder(ctx, s.Ingestor, args.FolderPath, true, batch.DefaultFileTypes, baseMeta, h.UpdateProgress, h.Done())
		})
		return map[string]any{
			"status": "accepted", "job_id": job.JobID,
			"message": "Folder processing job created for " + strconv.Itoa(len(files)) + " files",
		}
	}

	results, err := batch.ProcessFolder(ctx, s.Ingestor, args.FolderPath, true, batch.DefaultFileTypes, baseMeta, nil, nil)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	return map[string]any{"status": "completed", "results": results}
}

type jobIDArgs struct {
	JobID string `json:"job_id"`
}

func jobSummary(job model.Job) map[string]any {
	var message any
	switch job.Status {
	case model.JobStatusFailed:
		message = job.Error
	case model.JobStatusCompleted:
		message = job.Result
	}
	var updatedAt any
	if job.CompletedAt != nil {
		updatedAt = job.CompletedAt.Format(time.RFC3339)
	}
	return map[string]any{
		"job_id": job.JobID, "status": string(job.Status), "progress": job.Progress,
		"message": message, "created_at": job.CreatedAt.Format(time.RFC3339), "updated_at": updatedAt,
	}
}

func handleJobStatus(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args jobIDArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.JobID) == "" {
		return missingParam("job_id")
	}
	job, err := s.Jobs.Get(args.JobID)
	if err != nil {
		return map[string]any{"error": "Job not found: " + args.JobID}
	}
	summary := jobSummary(job)
	summary["result"] = job.Result
	return summary
}

type listJobsArgs struct {
	Status *string `json:"status"`
	Limit  *int    `json:"limit"`
}

func handleListJobs(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args listJobsArgs
	_ = json.Unmarshal(raw, &args)
	limit := 10
	if args.Limit != nil {
		limit = *args.Limit
	}
	filter := jobs.Filter{}
	if args.Status != nil {
		filter.Status = model.JobStatus(*args.Status)
	}
	list := s.Jobs.List(filter)
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}
	out := make([]map[string]any, 0, len(list))
	for _, job := range list {
		out = append(out, jobSummary(job))
	}
	return map[string]any{"jobs": out}
}

func handleCancelJob(ctx context.Context, s *Server, raw json.RawMessage) map[string]any {
	var args jobIDArgs
	_ = json.Unmarshal(raw, &args)
	if strings.TrimSpace(args.JobID) == "" {
		return missingParam("job_id")
	}
	if s.Jobs.Cancel(args.JobID) {
		return map[string]any{"status": "success", "message": "Job " + args.JobID + " cancelled"}
	}
	return map[string]any{"status": "error", "message": "Job " + args.JobID + " not found or cannot be cancelled"}
}
