package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"

	"graphrag/internal/apperr"
	"graphrag/internal/batch"
	"graphrag/internal/ingest"
	"graphrag/internal/jobs"
	"graphrag/internal/model"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	neo4jOK, _ := s.Graph.Health(ctx)
	vectorOK, _ := s.Vector.CheckHealth(ctx)
	status := "ok"
	if !neo4jOK || !vectorOK {
		status = "degraded"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"status":              status,
		"neo4j_connected":     neo4jOK,
		"vector_db_connected": vectorOK,
		"version":             s.Version,
	})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"version": s.Version})
}

type searchRequest struct {
	Query       string `json:"query"`
	NResults    *int   `json:"n_results"`
	MaxHops     *int   `json:"max_hops"`
	RepairIndex *bool  `json:"repair_index"`
}

func emptySearchResults() map[string]any {
	return map[string]any{
		"ids":       []string{},
		"documents": []string{},
		"metadatas": []map[string]string{},
		"distances": []float64{},
	}
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: query")
		return
	}

	nResults := 5
	if req.NResults != nil {
		nResults = *req.NResults
	}
	maxHops := 2
	if req.MaxHops != nil {
		maxHops = *req.MaxHops
	}
	repairIndex := true
	if req.RepairIndex != nil {
		repairIndex = *req.RepairIndex
	}

	results, err := s.Searcher.HybridSearch(r.Context(), req.Query, nResults, maxHops, repairIndex)
	if err != nil {
		s.warn("search", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"error":          err.Error(),
			"vector_results": emptySearchResults(),
			"graph_results":  []any{},
		})
		return
	}

	ids := make([]string, 0, len(results.VectorResults))
	documents := make([]string, 0, len(results.VectorResults))
	metadatas := make([]map[string]string, 0, len(results.VectorResults))
	distances := make([]float64, 0, len(results.VectorResults))
	for _, hit := range results.VectorResults {
		ids = append(ids, hit.ID)
		documents = append(documents, hit.Document)
		metadatas = append(metadatas, hit.Metadata)
		distances = append(distances, hit.Distance)
	}

	graphResults := make([]map[string]any, 0, len(results.GraphResults))
	for _, g := range results.GraphResults {
		graphResults = append(graphResults, map[string]any{
			"id": g.ID, "name": g.Name, "relevance_score": g.RelevanceScore,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"vector_results": map[string]any{
			"ids": ids, "documents": documents, "metadatas": metadatas, "distances": distances,
		},
		"graph_results": graphResults,
	})
}

type createDocumentRequest struct {
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

func metadataFromRequest(m map[string]string) ingest.Metadata {
	return ingest.Metadata{
		FilePath:        m["file_path"],
		Title:           m["title"],
		Author:          m["author"],
		Category:        m["category"],
		PublicationDate: m["publication_date"],
		URL:             m["url"],
		Filename:        m["filename"],
		Source:          m["source"],
		Domain:          m["domain"],
		Concepts:        m["concepts"],
		DocumentType:    model.DocumentType(m["document_type"]),
	}
}

func (s *Server) handleCreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Text == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: text")
		return
	}

	report, err := s.Ingestor.Ingest(r.Context(), req.Text, metadataFromRequest(req.Metadata), ingest.Options{UseChunkingForPDF: true})
	if err != nil {
		if apperr.KindOf(err) == apperr.BadRequest {
			respondError(w, http.StatusBadRequest, "Missing required parameter: text")
			return
		}
		s.warn("ingest", err)
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "failure", "error": err.Error(), "document_id": nil,
		})
		return
	}

	switch report.Status {
	case ingest.StatusDuplicate:
		respondJSON(w, http.StatusOK, report)
	case ingest.StatusFailure:
		msg := "document processing failed"
		if len(report.Details) > 0 && report.Details[0].Error != "" {
			msg = report.Details[0].Error
		}
		respondJSON(w, http.StatusInternalServerError, map[string]any{
			"status": "failure", "error": msg, "document_id": nil, "details": report.Details,
		})
	default: // success, partial_failure
		respondJSON(w, http.StatusCreated, report)
	}
}

type createFolderRequest struct {
	FolderPath      string            `json:"folder_path"`
	Recursive       bool              `json:"recursive"`
	FileTypes       []string          `json:"file_types"`
	DefaultMetadata map[string]string `json:"default_metadata"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	var req createFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.FolderPath == "" {
		respondError(w, http.StatusBadRequest, "Missing required parameter: folder_path")
		return
	}

	info, err := os.Stat(req.FolderPath)
	if err != nil || !info.IsDir() {
		respondError(w, http.StatusNotFound, "Folder not found: "+req.FolderPath)
		return
	}

	fileTypes := req.FileTypes
	if len(fileTypes) == 0 {
		fileTypes = batch.DefaultFileTypes
	}
	files, err := batch.Discover(req.FolderPath, req.Recursive, fileTypes)
	if err != nil {
		s.warn("discover", err)
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if len(files) == 0 {
		respondError(w, http.StatusNotFound, "No files found in "+req.FolderPath)
		return
	}

	job := s.Jobs.Create(model.JobTypeAddFolder, map[string]any{
		"folder_path": req.FolderPath,
		"recursive":   req.Recursive,
		"file_types":  fileTypes,
		"total_files": len(files),
	}, "")

	baseMeta := metadataFromRequest(req.DefaultMetadata)
	s.Jobs.Submit(job, func(ctx context.Context, h *jobs.Handle) (any, error) {
		return batch.ProcessFolder(ctx, s.Ingestor, req.FolderPath, req.Recursive, fileTypes, baseMeta, h.UpdateProgress, h.Done())
	})

	respondJSON(w, http.StatusAccepted, map[string]any{
		"status": "accepted", "job_id": job.JobID, "total_files": len(files),
	})
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	job, err := s.Jobs.Get(jobID)
	if err != nil {
		respondError(w, statusForKind(apperr.KindOf(err)), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, job)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	filter := jobs.Filter{
		Status:  model.JobStatus(r.URL.Query().Get("status")),
		JobType: model.JobType(r.URL.Query().Get("type")),
	}
	respondJSON(w, http.StatusOK, map[string]any{"jobs": s.Jobs.List(filter)})
}

func (s *Server) handleListConcepts(w http.ResponseWriter, r *http.Request) {
	concepts, err := s.Graph.ListConcepts(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"concepts": concepts})
}

func (s *Server) handleGetConcept(w http.ResponseWriter, r *http.Request) {
	name := strings.ToLower(strings.TrimSpace(r.PathValue("name")))
	ctx := r.Context()
	concept, ok, err := s.Graph.GetConceptByName(ctx, name)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		respondError(w, http.StatusNotFound, "No concept found with name containing '"+r.PathValue("name")+"'")
		return
	}

	edges, err := s.Graph.RelatedTo(ctx, concept.ID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Strength > edges[j].Strength })

	seen := make(map[string]struct{})
	related := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.TargetID]; dup {
			continue
		}
		seen[e.TargetID] = struct{}{}
		targetName := e.TargetID
		if target, ok, err := s.Graph.GetConcept(ctx, e.TargetID); err == nil && ok {
			targetName = target.Name
		}
		related = append(related, map[string]any{"id": e.TargetID, "name": targetName, "strength": e.Strength})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"concept":          map[string]any{"id": concept.ID, "name": concept.Name},
		"related_concepts": related,
	})
}

func (s *Server) handleDocumentsByConcept(w http.ResponseWriter, r *http.Request) {
	conceptName := r.PathValue("concept_name")
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	docs, err := s.Graph.DocumentsMentioningConcept(r.Context(), conceptName, limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"documents": docs})
}
