// graphrag/internal/config/config.go
package config

import "time"

// Config holds every recognized runtime setting for the service. Load fills
// each field from the process environment, else from its default (see
// loader.go); values from a .env file are applied first via
// godotenv.Overload and so replace same-named process variables. Load takes
// no arguments, so there is no explicit-parameter layer above the
// environment.
type Config struct {
	Neo4j  Neo4jConfig
	Chroma ChromaConfig
	LLM    LLMConfig

	Ports PortsConfig

	StateDir       string
	LogLevel       string
	LogPath        string
	RequestTimeout time.Duration

	ObsConfig ObsConfig
}

// Neo4jConfig configures the graph store connection.
type Neo4jConfig struct {
	URI      string
	Username string
	Password string
}

// ChromaConfig configures the vector store connection.
type ChromaConfig struct {
	PersistDirectory string
}

// LLMConfig configures the LLMGateway's primary/fallback provider chain.
// Every field is prefixed LLM_ in the environment per spec §6.
type LLMConfig struct {
	Provider         string // "openai", "anthropic", "google"
	BaseURL          string
	APIKey           string
	Model            string
	TimeoutSeconds   int
	MaxTokens        int
	Temperature      float64
	EmbeddingModel   string
	FallbackProvider string
	FallbackAPIKey   string
	FallbackModel    string
	FallbackBaseURL  string
}

// PortsConfig carries the GRAPHRAG_PORT_* overrides of spec §6.
type PortsConfig struct {
	API       int
	MCP       int
	Neo4jBolt int
	BugMCP    int
}

// ObsConfig configures the OpenTelemetry exporters in internal/observability.
type ObsConfig struct {
	OTLP           string
	ServiceName    string
	ServiceVersion string
	Environment    string
}
