// Package dedupe implements the DuplicateDetector of spec §4.2: path
// equality, metadata matching (exact and fuzzy title), and content-hash
// comparison, grounded on the layered duplicate-check cascade of the
// system this was distilled from (src/processing/duplicate_detector.py).
package dedupe

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/sirupsen/logrus"

	"graphrag/internal/graphstore"
)

// DefaultTitleSimilarityThreshold is the fuzzy-ratio cutoff (0-100) above
// which two titles are considered the same document, matching the
// system's title_similarity_threshold default.
const DefaultTitleSimilarityThreshold = 90.0

var whitespaceRun = regexp.MustCompile(`\s+`)

// Metadata is the subset of document attributes duplicate matching
// compares; fields left empty are skipped rather than treated as a match.
type Metadata struct {
	Title  string
	Author string
}

// Detector checks for duplicate documents across three independent
// signals: path, content hash, and metadata. A store that is unreachable
// must never fail ingestion — every method degrades to "not a duplicate"
// and reports the condition via the logger instead of propagating an error
// (spec §4.2, §7).
type Detector struct {
	Graph                    graphstore.GraphRepo
	TitleSimilarityThreshold float64
	Log                      *logrus.Logger
}

func New(graph graphstore.GraphRepo, log *logrus.Logger) *Detector {
	return &Detector{Graph: graph, TitleSimilarityThreshold: DefaultTitleSimilarityThreshold, Log: log}
}

// ByPath reports whether filePath matches an already-ingested document's
// source path, first exactly (after path normalization) and then
// case-insensitively as a second pass for case-insensitive filesystems.
func (d *Detector) ByPath(ctx context.Context, filePath string) (isDuplicate bool, existingID string) {
	metas, err := d.Graph.ListDocumentMeta(ctx)
	if err != nil {
		d.warn("path", err)
		return false, ""
	}

	normalized := filepath.Clean(filePath)
	for _, m := range metas {
		if filepath.Clean(m.FilePath) == normalized {
			return true, m.ID
		}
	}
	lowered := strings.ToLower(normalized)
	for _, m := range metas {
		if strings.ToLower(filepath.Clean(m.FilePath)) == lowered {
			return true, m.ID
		}
	}
	return false, ""
}

// ByMetadata reports whether metadata matches an existing document by
// title+author, title alone, normalized title, or fuzzy title similarity,
// in that priority order.
func (d *Detector) ByMetadata(ctx context.Context, metadata Metadata) (isDuplicate bool, existingID string) {
	title := strings.TrimSpace(metadata.Title)
	if title == "" {
		return false, ""
	}

	metas, err := d.Graph.ListDocumentMeta(ctx)
	if err != nil {
		d.warn("metadata", err)
		return false, ""
	}

	author := strings.TrimSpace(metadata.Author)
	if author != "" {
		for _, m := range metas {
			if m.Title == title && m.Author == author {
				return true, m.ID
			}
		}
	}

	for _, m := range metas {
		if m.Title == title {
			return true, m.ID
		}
	}

	titleLow := strings.ToLower(title)
	for _, m := range metas {
		if m.TitleLow == titleLow {
			return true, m.ID
		}
	}

	threshold := d.TitleSimilarityThreshold
	if threshold <= 0 {
		threshold = DefaultTitleSimilarityThreshold
	}
	for _, m := range metas {
		if m.Title == "" {
			continue
		}
		if fuzzyRatio(title, m.Title) >= threshold {
			if d.Log != nil {
				d.Log.WithFields(logrus.Fields{"title": title, "existing_title": m.Title}).Info("duplicate detected by fuzzy title match")
			}
			return true, m.ID
		}
	}
	return false, ""
}

// ContentHash normalizes text (collapse whitespace, lowercase) before
// hashing so that formatting differences between otherwise-identical
// ingests do not produce distinct hashes.
func ContentHash(text string) string {
	normalized := strings.ToLower(strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " ")))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// ByContentHash reports whether hash matches an already-ingested document.
func (d *Detector) ByContentHash(ctx context.Context, hash string) (isDuplicate bool, existingID string) {
	doc, ok, err := d.Graph.FindDocumentByHash(ctx, hash)
	if err != nil {
		d.warn("content_hash", err)
		return false, ""
	}
	if !ok {
		return false, ""
	}
	return true, doc.ID
}

// fuzzyRatio renders the agext/levenshtein similarity in the 0-100 range
// the system this was distilled from used (fuzzywuzzy.fuzz.ratio).
func fuzzyRatio(a, b string) float64 {
	return levenshtein.Match(strings.ToLower(a), strings.ToLower(b), nil) * 100
}

func (d *Detector) warn(check string, err error) {
	if d.Log == nil {
		return
	}
	d.Log.WithError(err).WithField("check", check).Warn("duplicate check could not reach the graph store, treating as non-duplicate")
}
