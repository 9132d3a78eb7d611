package extract

// promptEngineeringLexicon is the closed set of prompt-engineering terms
// the keyword_pe pass matches, each with its abbreviation, grounded on
// PROMPT_ENGINEERING_CONCEPTS in the system this was distilled from
// (scripts/document_processing/add_document_core.py).
var promptEngineeringLexicon = map[string]string{
	"prompt engineering":              "PE",
	"chain of thought":                "COT",
	"few-shot learning":               "FSL",
	"zero-shot learning":              "ZSL",
	"in-context learning":             "ICL",
	"retrieval augmented generation":  "RAG",
	"prompt template":                 "PT",
	"system prompt":                   "SP",
	"user prompt":                     "UP",
	"assistant prompt":                "AP",
	"prompt chaining":                 "PC",
	"prompt tuning":                   "PTU",
	"prompt optimization":             "PO",
	"prompt injection":                "PI",
	"prompt leaking":                  "PL",
	"prompt hacking":                  "PH",
	"jailbreaking":                    "JB",
	"role prompting":                  "RP",
	"persona prompting":               "PP",
	"instruction prompting":           "IP",
	"task-specific prompting":         "TSP",
	"self-consistency":                "SC",
	"tree of thought":                 "TOT",
	"reasoning":                       "RE",
	"step-by-step":                    "SBS",
	"fine-tuning":                     "FT",
	"parameter efficient fine-tuning": "PEFT",
	"low-rank adaptation":             "LORA",
	"knowledge graph":                 "KG",
	"vector database":                 "VDB",
	"embedding":                       "EMB",
	"token":                           "TOK",
	"tokenization":                    "TKZ",
	"temperature":                     "TEMP",
	"top-p sampling":                  "TPS",
	"top-k sampling":                  "TKS",
	"beam search":                     "BS",
	"greedy decoding":                 "GD",
	"hallucination":                   "HAL",
	"context window":                  "CW",
	"attention mechanism":             "AM",
	"transformer":                     "TR",
	"large language model":            "LLM",
	"generative ai":                   "GAI",
	"natural language processing":     "NLP",
	"natural language understanding":  "NLU",
	"natural language generation":     "NLG",
	"semantic search":                 "SS",
	"similarity search":               "SIS",
	"cosine similarity":               "CS",
	"vector embedding":                "VE",
	"text embedding":                  "TE",
	"document embedding":              "DE",
	"sentence embedding":              "SE",
	"word embedding":                  "WE",
	"contextual embedding":            "CE",
	"knowledge distillation":          "KD",
	"knowledge extraction":            "KE",
	"knowledge representation":        "KR",
	"knowledge base":                  "KB",
	"ontology":                        "ONT",
	"taxonomy":                        "TAX",
	"semantic network":                "SN",
	"semantic web":                    "SW",
	"semantic triple":                 "ST",
	"entity extraction":               "EE",
	"named entity recognition":        "NER",
	"relation extraction":             "REL",
	"information extraction":          "IE",
	"information retrieval":           "IR",
	"question answering":              "QA",
	"chatbot":                         "CB",
	"conversational ai":               "CAI",
	"dialogue system":                 "DS",
}

// commonKeywordLexicon is the domain-independent keyword table for the
// keyword_text pass.
var commonKeywordLexicon = map[string]string{
	"machine learning":                "ML",
	"neural network":                  "NN",
	"deep learning":                   "DL",
	"artificial intelligence":         "AI",
	"natural language processing":     "NLP",
	"computer vision":                 "CV",
	"reinforcement learning":          "RL",
	"supervised learning":             "SL",
	"unsupervised learning":           "UL",
	"transformer":                     "TR",
	"attention mechanism":             "AM",
	"convolutional neural network":    "CNN",
	"recurrent neural network":        "RNN",
	"long short-term memory":          "LSTM",
	"gated recurrent unit":            "GRU",
	"generative adversarial network":  "GAN",
	"transfer learning":               "TL",
	"fine-tuning":                     "FT",
	"backpropagation":                 "BP",
	"gradient descent":                "GD",
	"retrieval-augmented generation":  "RAG",
	"graphrag":                        "GRAG",
	"knowledge graph":                 "KG",
	"vector database":                 "VDB",
	"embedding":                       "EMB",
	"hybrid search":                   "HS",
	"deduplication":                   "DD",
	"large language model":            "LLM",
	"neo4j":                           "NEO",
	"chromadb":                        "CHROMA",
}

// domainKeywordLexicons are applied on top of commonKeywordLexicon when the
// caller names a recognized domain.
var domainKeywordLexicons = map[string]map[string]string{
	"AI": {
		"prompt engineering": "PE",
		"chain of thought":   "COT",
		"few-shot learning":  "FSL",
		"zero-shot learning": "ZSL",
		"multimodal":         "MM",
		"text-to-image":      "T2I",
		"diffusion model":    "DM",
		"stable diffusion":   "SD",
		"gpt":                "GPT",
		"bert":               "BERT",
		"llama":              "LLAMA",
		"claude":             "CLAUDE",
	},
	"Programming": {
		"python":        "PY",
		"javascript":    "JS",
		"typescript":    "TS",
		"java":          "JAVA",
		"rust":          "RUST",
		"go":            "GO",
		"docker":        "DOCKER",
		"kubernetes":    "K8S",
		"microservices": "MS",
		"api":           "API",
		"rest":          "REST",
		"graphql":       "GQL",
		"database":      "DB",
		"sql":           "SQL",
		"nosql":         "NOSQL",
		"git":           "GIT",
		"devops":        "DEVOPS",
	},
}

// relationshipCues maps each Concept→Concept relationship kind to the
// ordered set of natural-language cue phrases the pattern-based pass
// searches for between a source and target concept name, grounded on
// RELATIONSHIP_PATTERNS in the system this was distilled from.
var relationshipCues = map[string][]string{
	"DEFINES_CONCEPT":   {" defines ", " is defined as ", " refers to ", " means "},
	"IS_A":              {" is a ", " is an ", " is type of ", " is kind of "},
	"HAS_PART":          {" has ", " contains ", " includes ", " consists of "},
	"USED_FOR":          {" is used for ", " is used to ", " enables ", " allows "},
	"IMPLEMENTS_METHOD": {" implements ", " uses ", " employs ", " utilizes "},
	"HAS_ATTRIBUTE":     {" has attribute ", " has property ", " is characterized by "},
	"EXAMPLE_OF":        {" is example of ", " illustrates ", " demonstrates "},
	"REQUIRES_INPUT":    {" requires ", " needs ", " depends on "},
	"STEP_IN_PROCESS":   {" follows ", " precedes ", " comes after ", " comes before "},
	"COMPARES_WITH":     {" compared to ", " versus ", " as opposed to ", " in contrast to "},
}

// relationshipKindOrder fixes pattern-matching priority: the first kind
// (in this order) whose cue is found between a pair wins, matching the
// dict-iteration order of the system this was distilled from.
var relationshipKindOrder = []string{
	"DEFINES_CONCEPT", "IS_A", "HAS_PART", "USED_FOR", "IMPLEMENTS_METHOD",
	"HAS_ATTRIBUTE", "EXAMPLE_OF", "REQUIRES_INPUT", "STEP_IN_PROCESS", "COMPARES_WITH",
}
