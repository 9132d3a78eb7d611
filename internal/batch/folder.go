// Package batch implements folder ingestion (spec §6 POST /folders, the
// add-folder MCP tool): walking a directory, filtering by extension, and
// running the Ingestor over every discovered file, grounded on the
// directory-walk/per-file-result shape of
// original_source/scripts/batch_process.py's process_directory.
package batch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"graphrag/internal/ingest"
	"graphrag/internal/model"
)

// DefaultFileTypes is the extension allow-list spec §6 names for POST
// /folders when file_types is omitted.
var DefaultFileTypes = []string{".pdf", ".txt", ".md"}

// FileResult is one file's outcome, unified on the
// {status, document_id?, file, error?} shape spec §9 open question (b)
// asks a fresh implementation to standardize on.
type FileResult struct {
	Status     ingest.Status `json:"status"`
	DocumentID *string       `json:"document_id,omitempty"`
	File       string        `json:"file"`
	Error      string        `json:"error,omitempty"`
}

// Discover walks root (recursing when recursive is true) and returns every
// file whose extension is in fileTypes, skipping hidden and system files
// (dotfiles, and names with no extension at all).
func Discover(root string, recursive bool, fileTypes []string) ([]string, error) {
	allow := make(map[string]bool, len(fileTypes))
	for _, ext := range fileTypes {
		allow[strings.ToLower(ext)] = true
	}

	var files []string
	walk := func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if !recursive && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, ".") {
			return nil
		}
		if allow[strings.ToLower(filepath.Ext(name))] {
			files = append(files, path)
		}
		return nil
	}
	if err := filepath.WalkDir(root, walk); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// documentTypeForExt maps a file extension onto the DocumentType the
// Ingestor uses to decide whether chunking applies (spec §4.4).
func documentTypeForExt(ext string) model.DocumentType {
	switch strings.ToLower(ext) {
	case ".pdf":
		return model.DocumentTypePDF
	case ".txt":
		return model.DocumentTypeTXT
	default:
		return model.DocumentTypeText
	}
}

// ProcessFolder ingests every file under folderPath, reporting progress via
// onProgress and stopping early (without failing already-processed files)
// when done is closed — the cooperative cancellation contract the
// JobManager's Handle exposes (spec §5).
func ProcessFolder(ctx context.Context, ig *ingest.Ingestor, folderPath string, recursive bool, fileTypes []string, base ingest.Metadata, onProgress func(processed, total int), done <-chan struct{}) ([]FileResult, error) {
	if len(fileTypes) == 0 {
		fileTypes = DefaultFileTypes
	}
	files, err := Discover(folderPath, recursive, fileTypes)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(files))
	for i, path := range files {
		select {
		case <-done:
			if err := ctx.Err(); err != nil {
				return results, err
			}
			return results, context.Canceled
		default:
		}

		meta := base
		meta.FilePath = path
		meta.Filename = filepath.Base(path)
		if meta.Title == "" {
			meta.Title = strings.TrimSuffix(meta.Filename, filepath.Ext(meta.Filename))
		}
		meta.DocumentType = documentTypeForExt(filepath.Ext(path))

		text, rerr := os.ReadFile(path)
		if rerr != nil {
			results = append(results, FileResult{Status: ingest.StatusFailure, File: path, Error: rerr.Error()})
			if onProgress != nil {
				onProgress(i+1, len(files))
			}
			continue
		}

		report, ierr := ig.Ingest(ctx, string(text), meta, ingest.Options{UseChunkingForPDF: true})
		if ierr != nil {
			results = append(results, FileResult{Status: ingest.StatusFailure, File: path, Error: ierr.Error()})
		} else {
			results = append(results, FileResult{Status: report.Status, DocumentID: report.DocumentID, File: path})
		}
		if onProgress != nil {
			onProgress(i+1, len(files))
		}
	}
	return results, nil
}
