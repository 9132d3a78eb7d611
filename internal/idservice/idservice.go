// Package idservice mints stable identifiers for documents, chunks, and
// concepts (spec §4.11).
package idservice

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// NewDocumentID returns "doc-" + UUIDv4.
func NewDocumentID() string {
	return "doc-" + uuid.NewString()
}

// NewChunkID returns "chunk-" + documentID + "-" + chunkIndex + "-" + 8 hex
// chars of a fresh UUIDv4, the random suffix guarding against collisions
// across independent runs.
func NewChunkID(documentID string, chunkIndex int) string {
	return "chunk-" + documentID + "-" + strconv.Itoa(chunkIndex) + "-" + shortHex()
}

// NewConceptID returns "concept-" + sourceTag + "-" + slug(name) + "-" + 8
// hex chars. Normalized-name deduplication means the id only matters on
// first creation; later observers adopt the existing id (see graphstore).
func NewConceptID(sourceTag, name string) string {
	return "concept-" + sourceTag + "-" + Slugify(name) + "-" + shortHex()
}

// Slugify lower-cases name and collapses runs of non-alphanumeric characters
// into a single hyphen, trimming leading/trailing hyphens.
func Slugify(name string) string {
	s := slugNonAlnum.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

func shortHex() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
