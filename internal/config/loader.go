package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// defaultPorts mirrors the DEFAULT_PORTS table of the service this was
// distilled from: one well-known default per named service.
var defaultPorts = map[string]int{
	"api":        5001,
	"mcp":        8767,
	"neo4j_bolt": 7687,
	"bug_mcp":    5005,
}

// Load reads configuration from the process environment (optionally
// overridden by a .env file via godotenv.Overload), applying the defaults of
// spec §6. Load never fails on a missing optional value; it only fails if an
// int/float environment value is present but unparsable.
func Load() (Config, error) {
	_ = godotenv.Overload()

	cfg := Config{
		Neo4j: Neo4jConfig{
			URI:      firstNonEmpty(os.Getenv("NEO4J_URI"), "bolt://localhost:7687"),
			Username: firstNonEmpty(os.Getenv("NEO4J_USER"), "neo4j"),
			Password: firstNonEmpty(os.Getenv("NEO4J_PASSWORD"), "graphrag"),
		},
		Chroma: ChromaConfig{
			PersistDirectory: firstNonEmpty(os.Getenv("CHROMA_PERSIST_DIRECTORY"), "./data/chromadb"),
		},
		StateDir: firstNonEmpty(os.Getenv("GRAPHRAG_STATE_DIR"), "./data/state"),
		LogLevel: firstNonEmpty(os.Getenv("LOG_LEVEL"), "info"),
		LogPath:  os.Getenv("LOG_PATH"),
		ObsConfig: ObsConfig{
			OTLP:           os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName:    firstNonEmpty(os.Getenv("OTEL_SERVICE_NAME"), "graphrag"),
			ServiceVersion: firstNonEmpty(os.Getenv("GRAPHRAG_VERSION"), "dev"),
			Environment:    firstNonEmpty(os.Getenv("GRAPHRAG_ENV"), "development"),
		},
	}

	reqTimeout, err := parseIntDefault("GRAPHRAG_REQUEST_TIMEOUT_SECONDS", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout = time.Duration(reqTimeout) * time.Second

	cfg.LLM.Provider = firstNonEmpty(os.Getenv("LLM_PROVIDER"), "openai")
	cfg.LLM.BaseURL = os.Getenv("LLM_BASE_URL")
	cfg.LLM.APIKey = os.Getenv("LLM_API_KEY")
	cfg.LLM.Model = firstNonEmpty(os.Getenv("LLM_MODEL"), "gpt-4o-mini")
	cfg.LLM.EmbeddingModel = firstNonEmpty(os.Getenv("LLM_EMBEDDING_MODEL"), "text-embedding-3-small")
	cfg.LLM.FallbackProvider = os.Getenv("LLM_FALLBACK_PROVIDER")
	cfg.LLM.FallbackBaseURL = os.Getenv("LLM_FALLBACK_BASE_URL")
	cfg.LLM.FallbackAPIKey = os.Getenv("LLM_FALLBACK_API_KEY")
	cfg.LLM.FallbackModel = os.Getenv("LLM_FALLBACK_MODEL")

	timeoutSeconds, err := parseIntDefault("LLM_TIMEOUT_SECONDS", 60)
	if err != nil {
		return Config{}, err
	}
	cfg.LLM.TimeoutSeconds = timeoutSeconds

	maxTokens, err := parseIntDefault("LLM_MAX_TOKENS", 1024)
	if err != nil {
		return Config{}, err
	}
	cfg.LLM.MaxTokens = maxTokens

	temp, err := parseFloatDefault("LLM_TEMPERATURE", 0.2)
	if err != nil {
		return Config{}, err
	}
	cfg.LLM.Temperature = temp

	for name, field := range map[string]*int{
		"api":        &cfg.Ports.API,
		"mcp":        &cfg.Ports.MCP,
		"neo4j_bolt": &cfg.Ports.Neo4jBolt,
		"bug_mcp":    &cfg.Ports.BugMCP,
	} {
		p, err := Port(name)
		if err != nil {
			return Config{}, err
		}
		*field = p
	}

	return cfg, nil
}

// Port resolves the listening port for a named service, honoring the
// GRAPHRAG_PORT_<SERVICE> environment override. Unknown service names fail
// loudly, matching the source behavior this was distilled from.
func Port(service string) (int, error) {
	def, ok := defaultPorts[service]
	if !ok {
		return 0, fmt.Errorf("config: unknown service %q for port resolution", service)
	}
	envKey := "GRAPHRAG_PORT_" + strings.ToUpper(service)
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("config: invalid %s=%q: %w", envKey, v, err)
		}
		return n, nil
	}
	return def, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func parseIntDefault(envKey string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", envKey, v, err)
	}
	return n, nil
}

func parseFloatDefault(envKey string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(envKey))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: invalid %s=%q: %w", envKey, v, err)
	}
	return f, nil
}
