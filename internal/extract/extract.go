// Package extract implements ConceptExtractor (spec §4.3): LLM, keyword,
// and metadata concept passes merged by normalized_name, plus LLM,
// pattern-based, and co-occurrence relationship strategies merged by
// source priority, grounded on the extract_entities/extract_relationships
// cascade of the system this was distilled from
// (scripts/document_processing/add_document_core.py).
package extract

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"graphrag/internal/chunker"
	"graphrag/internal/idservice"
	"graphrag/internal/llm"
	"graphrag/internal/model"
)

// Result is the output of one extraction pass: a deduplicated set of
// concepts and the typed relationships found among them.
type Result struct {
	Concepts      []model.Concept
	Relationships []model.Relationship
}

// Metadata is the subset of document metadata the extractor consults.
type Metadata struct {
	Domain   string // "AI", "Programming", or "" for common-only
	Concepts string // comma-separated or already-split list, from metadata.concepts
}

var kindPattern = regexp.MustCompile(`^[A-Z_]+$`)
var relationKindPattern = kindPattern

// Extractor runs the four concept passes and three relationship strategies
// of spec §4.3. Gateway may be nil, in which case the LLM pass is skipped
// entirely (not treated as a failure).
type Extractor struct {
	Gateway *llm.Gateway
	Log     *logrus.Logger
}

func New(gateway *llm.Gateway, log *logrus.Logger) *Extractor {
	return &Extractor{Gateway: gateway, Log: log}
}

// Extract runs all four concept passes and all three relationship
// strategies over a single unit of text (spec §4.3).
func (e *Extractor) Extract(ctx context.Context, text string, meta Metadata, chunkIndex *int) Result {
	concepts := e.extractConcepts(ctx, text, meta, chunkIndex)
	rels := e.extractRelationships(ctx, text, concepts)
	return Result{Concepts: concepts, Relationships: rels}
}

// ExtractTwoPass implements extract_concepts_two_pass (spec §4.3):
// chunk the input with overlap, run the concept passes per chunk and union
// by normalized_name, then run the relationship strategies once over the
// unioned concept set against the original text.
func (e *Extractor) ExtractTwoPass(ctx context.Context, fullText string, meta Metadata, chunkSize, overlap int) (Result, error) {
	units, err := chunker.New().Split(fullText, chunkSize, overlap)
	if err != nil {
		return Result{}, err
	}

	byName := make(map[string]model.Concept)
	order := make([]string, 0)
	for _, u := range units {
		idx := u.Index
		for _, c := range e.extractConcepts(ctx, u.Text, meta, &idx) {
			existing, ok := byName[c.NormalizedName]
			if !ok {
				byName[c.NormalizedName] = c
				order = append(order, c.NormalizedName)
				continue
			}
			byName[c.NormalizedName] = unionConcept(existing, c)
		}
	}

	concepts := make([]model.Concept, 0, len(order))
	for _, name := range order {
		concepts = append(concepts, byName[name])
	}

	rels := e.extractRelationships(ctx, fullText, concepts)
	return Result{Concepts: concepts, Relationships: rels}, nil
}

// unionConcept merges a later chunk's observation of the same concept into
// the first: the longer description wins, related names are unioned, and
// the original provenance chunk index is kept (spec §4.3, §9 open question c).
func unionConcept(existing, incoming model.Concept) model.Concept {
	merged := existing
	if len(incoming.Description) > len(merged.Description) {
		merged.Description = incoming.Description
	}
	seen := make(map[string]struct{}, len(merged.RelatedNames))
	for _, n := range merged.RelatedNames {
		seen[n] = struct{}{}
	}
	for _, n := range incoming.RelatedNames {
		if _, ok := seen[n]; !ok {
			merged.RelatedNames = append(merged.RelatedNames, n)
			seen[n] = struct{}{}
		}
	}
	return merged
}

// extractConcepts runs the four concept passes in priority order, merging
// by normalized_name: the first pass to emit a name owns its identity
// (id, type); later passes only fill fields the first pass left empty.
func (e *Extractor) extractConcepts(ctx context.Context, text string, meta Metadata, chunkIndex *int) []model.Concept {
	byName := make(map[string]model.Concept)
	order := make([]string, 0)

	add := func(c model.Concept) {
		existing, ok := byName[c.NormalizedName]
		if !ok {
			byName[c.NormalizedName] = c
			order = append(order, c.NormalizedName)
			return
		}
		byName[c.NormalizedName] = fillAbsent(existing, c)
	}

	if e.Gateway != nil {
		llmConcepts, _ := e.runLLMConcepts(ctx, text, chunkIndex)
		for _, c := range llmConcepts {
			add(c)
		}
	}

	textLower := strings.ToLower(text)
	for phrase, abbr := range promptEngineeringLexicon {
		if strings.Contains(textLower, phrase) {
			name := titleCase(phrase)
			add(model.Concept{
				ID:             idservice.NewConceptID("pe", name),
				Name:           name,
				NormalizedName: normalize(name),
				Type:           "PromptEngineeringConcept",
				Abbreviation:   abbr,
				Source:         model.ConceptSourceKeywordPE,
				ChunkIndex:     chunkIndex,
			})
		}
	}

	lexicon := make(map[string]string, len(commonKeywordLexicon))
	for k, v := range commonKeywordLexicon {
		lexicon[k] = v
	}
	if extra, ok := domainKeywordLexicons[meta.Domain]; ok {
		for k, v := range extra {
			lexicon[k] = v
		}
	}
	for phrase, abbr := range lexicon {
		if strings.Contains(textLower, phrase) {
			name := titleCase(phrase)
			add(model.Concept{
				ID:             idservice.NewConceptID("kw", name),
				Name:           name,
				NormalizedName: normalize(name),
				Type:           "Concept",
				Abbreviation:   abbr,
				Source:         model.ConceptSourceKeywordText,
				ChunkIndex:     chunkIndex,
			})
		}
	}

	for _, name := range splitConceptList(meta.Concepts) {
		add(model.Concept{
			ID:             idservice.NewConceptID("meta", name),
			Name:           name,
			NormalizedName: normalize(name),
			Type:           "Concept",
			Source:         model.ConceptSourceMetadata,
			ChunkIndex:     chunkIndex,
		})
	}

	out := make([]model.Concept, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

// fillAbsent keeps existing's identity (id, type, source) and fills only
// fields incoming has that existing lacks.
func fillAbsent(existing, incoming model.Concept) model.Concept {
	merged := existing
	if merged.Abbreviation == "" {
		merged.Abbreviation = incoming.Abbreviation
	}
	if merged.Description == "" {
		merged.Description = incoming.Description
	}
	return merged
}

func splitConceptList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// titleCase upper-cases the first letter of each word; used to render
// a lexicon phrase (always lower-case in the table) as a display name.
func titleCase(phrase string) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		r := []rune(w)
		if len(r) > 0 {
			r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// llmConceptJSON / llmRelationshipJSON mirror the JSON shape the extraction
// prompt asks the model for.
type llmConceptJSON struct {
	Name            string   `json:"name"`
	Type            string   `json:"type"`
	Description     string   `json:"description"`
	RelatedConcepts []string `json:"related_concepts"`
}

type llmRelationshipJSON struct {
	Source      string  `json:"source"`
	Target      string  `json:"target"`
	Type        string  `json:"type"`
	Strength    float64 `json:"strength"`
	Description string  `json:"description"`
}

type llmExtractionJSON struct {
	Concepts      []llmConceptJSON      `json:"concepts"`
	Relationships []llmRelationshipJSON `json:"relationships"`
}

const extractionPrompt = `Extract domain concepts and the relationships between them from the text below.
Respond with a single JSON object of the shape:
{"concepts": [{"name": "...", "type": "Concept", "description": "...", "related_concepts": ["..."]}],
 "relationships": [{"source": "...", "target": "...", "type": "RELATED_TO", "strength": 0.6, "description": "..."}]}
Return JSON only, no prose.

Text:
`

// runLLMConcepts runs the LLM pass and parses its response tolerantly:
// prose around the JSON payload is stripped by locating the outermost
// object braces (or, failing that, the outermost array brackets, treated
// as a bare concepts list).
func (e *Extractor) runLLMConcepts(ctx context.Context, text string, chunkIndex *int) ([]model.Concept, []llmRelationshipJSON) {
	raw, err := e.Gateway.Generate(ctx, extractionPrompt+text, llm.GenerateOptions{})
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).Warn("llm concept extraction failed, continuing with keyword/metadata passes only")
		}
		return nil, nil
	}

	var parsed llmExtractionJSON
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil {
		if e.Log != nil {
			e.Log.WithError(err).Warn("llm concept extraction returned unparseable JSON")
		}
		return nil, nil
	}

	concepts := make([]model.Concept, 0, len(parsed.Concepts))
	for _, c := range parsed.Concepts {
		if strings.TrimSpace(c.Name) == "" {
			continue
		}
		typ := c.Type
		if typ == "" {
			typ = "Concept"
		}
		concepts = append(concepts, model.Concept{
			ID:             idservice.NewConceptID("llm", c.Name),
			Name:           c.Name,
			NormalizedName: normalize(c.Name),
			Type:           typ,
			Description:    c.Description,
			Source:         model.ConceptSourceLLM,
			RelatedNames:   c.RelatedConcepts,
			ChunkIndex:     chunkIndex,
		})
	}
	return concepts, parsed.Relationships
}

func extractJSONPayload(raw string) string {
	if i, j := strings.Index(raw, "{"), strings.LastIndex(raw, "}"); i >= 0 && j > i {
		return raw[i : j+1]
	}
	if i, j := strings.Index(raw, "["), strings.LastIndex(raw, "]"); i >= 0 && j > i {
		return `{"concepts":` + raw[i:j+1] + `}`
	}
	return "{}"
}

const (
	priorityBasic   = 1
	priorityPattern = 2
	priorityLLM     = 3
)

type pairKey struct{ source, target string }

// extractRelationships runs the three relationship strategies of spec
// §4.3 and merges them by (source, target) with priority
// llm > pattern_based > basic_cooccurrence, highest strength winning ties.
func (e *Extractor) extractRelationships(ctx context.Context, text string, concepts []model.Concept) []model.Relationship {
	if len(concepts) < 2 {
		return nil
	}

	byPair := make(map[pairKey]model.Relationship)
	order := make([]pairKey, 0)
	priority := make(map[pairKey]int)

	consider := func(rel model.Relationship, rank int) {
		key := pairKey{rel.SourceID, rel.TargetID}
		existing, ok := byPair[key]
		if !ok {
			byPair[key] = rel
			priority[key] = rank
			order = append(order, key)
			return
		}
		if rank > priority[key] || (rank == priority[key] && rel.Strength > existing.Strength) {
			byPair[key] = rel
			priority[key] = rank
		}
	}

	if e.Gateway != nil {
		for _, rel := range e.runLLMRelationships(ctx, text, concepts) {
			consider(rel, priorityLLM)
		}
	}

	for _, rel := range patternBasedRelationships(concepts, text) {
		consider(rel, priorityPattern)
	}

	if len(byPair) == 0 {
		for _, rel := range coOccurrenceRelationships(concepts, text) {
			consider(rel, priorityBasic)
		}
	}

	out := make([]model.Relationship, 0, len(order))
	for _, k := range order {
		out = append(out, byPair[k])
	}
	return out
}

func (e *Extractor) runLLMRelationships(ctx context.Context, text string, concepts []model.Concept) []model.Relationship {
	byName := make(map[string]model.Concept, len(concepts))
	for _, c := range concepts {
		byName[c.Name] = c
	}

	raw, err := e.Gateway.Generate(ctx, extractionPrompt+text, llm.GenerateOptions{})
	if err != nil {
		return nil
	}
	var parsed llmExtractionJSON
	if err := json.Unmarshal([]byte(extractJSONPayload(raw)), &parsed); err != nil {
		return nil
	}

	out := make([]model.Relationship, 0, len(parsed.Relationships))
	for _, r := range parsed.Relationships {
		src, ok1 := byName[r.Source]
		dst, ok2 := byName[r.Target]
		if !ok1 || !ok2 || src.ID == dst.ID {
			continue
		}
		kind := strings.ReplaceAll(strings.ToUpper(r.Type), " ", "_")
		if kind == "" || !relationKindPattern.MatchString(kind) {
			kind = model.KindRelatedTo
		}
		strength := r.Strength
		if strength == 0 {
			strength = 0.6
		}
		if strength < 0 {
			strength = 0
		}
		if strength > 1 {
			strength = 1
		}
		desc := r.Description
		if desc == "" {
			desc = src.Name + " is " + strings.ToLower(strings.ReplaceAll(kind, "_", " ")) + " " + dst.Name
		}
		out = append(out, model.Relationship{
			SourceID:    src.ID,
			TargetID:    dst.ID,
			Kind:        kind,
			Strength:    strength,
			Description: desc,
			Method:      model.RelationshipMethodLLM,
		})
	}
	return out
}

// patternBasedRelationships searches, for every ordered pair of concepts,
// for a literal "<source> <cue> <target>" substring, trying each kind's
// cues in the fixed priority order of relationshipKindOrder.
func patternBasedRelationships(concepts []model.Concept, text string) []model.Relationship {
	textLower := strings.ToLower(text)
	var out []model.Relationship
	for i, src := range concepts {
		srcLow := strings.ToLower(src.Name)
		for j, dst := range concepts {
			if i == j {
				continue
			}
			dstLow := strings.ToLower(dst.Name)
			kind, found := matchCue(textLower, srcLow, dstLow)
			if !found {
				continue
			}
			out = append(out, model.Relationship{
				SourceID:    src.ID,
				TargetID:    dst.ID,
				Kind:        kind,
				Strength:    0.8,
				Description: src.Name + " is " + strings.ToLower(strings.ReplaceAll(kind, "_", " ")) + " " + dst.Name,
				Method:      model.RelationshipMethodPatternBased,
			})
		}
	}
	return out
}

func matchCue(textLower, srcLow, dstLow string) (string, bool) {
	for _, kind := range relationshipKindOrder {
		for _, cue := range relationshipCues[kind] {
			if strings.Contains(textLower, srcLow+cue+dstLow) {
				return kind, true
			}
		}
	}
	return "", false
}

// coOccurrenceRelationships is the fallback strategy: every unordered pair
// of concepts that both literally appear in the text gets a weak
// RELATED_TO edge. Only invoked when neither LLM nor pattern matching
// produced any relationship at all.
func coOccurrenceRelationships(concepts []model.Concept, text string) []model.Relationship {
	textLower := strings.ToLower(text)
	var out []model.Relationship
	for i := 0; i < len(concepts); i++ {
		if !strings.Contains(textLower, strings.ToLower(concepts[i].Name)) {
			continue
		}
		for j := i + 1; j < len(concepts); j++ {
			if !strings.Contains(textLower, strings.ToLower(concepts[j].Name)) {
				continue
			}
			out = append(out, model.Relationship{
				SourceID:    concepts[i].ID,
				TargetID:    concepts[j].ID,
				Kind:        model.KindRelatedTo,
				Strength:    0.3,
				Description: concepts[i].Name + " co-occurs with " + concepts[j].Name,
				Method:      model.RelationshipMethodCooccurrence,
			})
		}
	}
	return out
}
