// Package model defines the entities of the data model: Document, Chunk,
// Concept, Relationship, and Job.
package model

import "time"

// DocumentType enumerates the source formats accepted by the Ingestor.
type DocumentType string

const (
	DocumentTypeText DocumentType = "text"
	DocumentTypePDF  DocumentType = "pdf"
	DocumentTypeTXT  DocumentType = "txt"
)

// Document represents one ingested source.
type Document struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	Source          string       `json:"source"`
	DocumentType    DocumentType `json:"document_type"`
	ContentHash     string       `json:"content_hash"`
	WordCount       int          `json:"word_count"`
	CharCount       int          `json:"char_count"`
	Author          string       `json:"author,omitempty"`
	Category        string       `json:"category,omitempty"`
	PublicationDate string       `json:"publication_date,omitempty"`
	URL             string       `json:"url,omitempty"`
	Filename        string       `json:"filename,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// Chunk is a contiguous text slice of a Document.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	ChunkIndex int    `json:"chunk_index"`
	Text       string `json:"-"`
	TextHash   string `json:"text_hash"`
	CharCount  int    `json:"char_count"`
	WordCount  int    `json:"word_count"`
}

// ConceptSource identifies which extraction pass produced a concept.
type ConceptSource string

const (
	ConceptSourceLLM         ConceptSource = "llm"
	ConceptSourceKeywordText ConceptSource = "keyword_text"
	ConceptSourceKeywordPE   ConceptSource = "keyword_pe"
	ConceptSourceMetadata    ConceptSource = "metadata"
)

// Concept is a domain entity or topic, deduplicated by NormalizedName.
type Concept struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	NormalizedName string        `json:"normalized_name"`
	Type           string        `json:"type"`
	Abbreviation   string        `json:"abbreviation,omitempty"`
	Description    string        `json:"description,omitempty"`
	Source         ConceptSource `json:"source"`
	ChunkIndex     *int          `json:"chunk_index,omitempty"`
	RelatedNames   []string      `json:"-"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// RelationshipMethod identifies which extraction strategy produced an edge.
type RelationshipMethod string

const (
	RelationshipMethodLLM            RelationshipMethod = "llm"
	RelationshipMethodPatternBased   RelationshipMethod = "pattern_based"
	RelationshipMethodCooccurrence   RelationshipMethod = "basic_cooccurrence"
	RelationshipMethodMentions       RelationshipMethod = ""
)

// Relationship kinds between two Concepts (see spec §3).
const (
	KindRelatedTo         = "RELATED_TO"
	KindDefinesConcept    = "DEFINES_CONCEPT"
	KindIsA               = "IS_A"
	KindHasPart           = "HAS_PART"
	KindUsedFor           = "USED_FOR"
	KindImplementsMethod  = "IMPLEMENTS_METHOD"
	KindHasAttribute      = "HAS_ATTRIBUTE"
	KindExampleOf         = "EXAMPLE_OF"
	KindRequiresInput     = "REQUIRES_INPUT"
	KindStepInProcess     = "STEP_IN_PROCESS"
	KindComparesWith      = "COMPARES_WITH"
	KindHasChunk          = "HAS_CHUNK"
	KindMentionsConcept   = "MENTIONS_CONCEPT"
)

// Relationship is a directed typed edge, either Concept->Concept (carries
// Strength/Description/Method) or Document|Chunk->Concept (MENTIONS_CONCEPT,
// no strength).
type Relationship struct {
	SourceID    string             `json:"source_id"`
	TargetID    string             `json:"target_id"`
	Kind        string             `json:"type"`
	Strength    float64            `json:"strength,omitempty"`
	Description string             `json:"description,omitempty"`
	Method      RelationshipMethod `json:"method,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at,omitempty"`
}

// JobType enumerates the kinds of background work the JobManager executes.
type JobType string

const (
	JobTypeAddBug          JobType = "add_bug"
	JobTypeAddFolder       JobType = "add_folder"
	JobTypeProcessDocument JobType = "process_document"
	JobTypeProcessFolder   JobType = "process_folder"
)

// JobStatus is the lifecycle state of a Job.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job is a unit of background work managed by the JobManager, persisted to
// disk on every state transition.
type Job struct {
	JobID          string         `json:"job_id"`
	JobType        JobType        `json:"job_type"`
	Params         map[string]any `json:"params,omitempty"`
	Status         JobStatus      `json:"status"`
	Progress       float64        `json:"progress"`
	ProcessedItems int            `json:"processed_items"`
	TotalItems     int            `json:"total_items"`
	CreatedAt      time.Time      `json:"created_at"`
	StartedAt      *time.Time     `json:"started_at,omitempty"`
	CompletedAt    *time.Time     `json:"completed_at,omitempty"`
	Result         any            `json:"result,omitempty"`
	Error          string         `json:"error,omitempty"`
	CreatedBy      string         `json:"created_by,omitempty"`

	// cancel is invoked by Cancel to best-effort interrupt a running worker.
	// It is never marshaled.
	cancel func() `json:"-"`
}

// Clone returns a deep-enough copy for safe external observation (callers of
// JobManager.Get/List must not be able to mutate internal state).
func (j Job) Clone() Job {
	c := j
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	if j.Params != nil {
		c.Params = make(map[string]any, len(j.Params))
		for k, v := range j.Params {
			c.Params[k] = v
		}
	}
	c.cancel = nil
	return c
}

// SetCancelFunc stores the best-effort interrupt hook; JSON marshaling never
// observes it.
func (j *Job) SetCancelFunc(f func()) { j.cancel = f }

// CancelFunc returns the stored interrupt hook, or nil.
func (j *Job) CancelFunc() func() { return j.cancel }
