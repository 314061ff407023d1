// Package config loads and validates sopindex configuration.
//
// Configuration is applied in order of increasing precedence:
//  1. Hardcoded defaults
//  2. User/global config (~/.config/sopindex/config.yaml)
//  3. Project config (.sopindex.yaml in the working directory)
//  4. Environment variables (SOPINDEX_*)
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ArbitrationPolicy controls what happens when the active-version lookup
// fails during ingestion because the store is unreachable.
type ArbitrationPolicy string

const (
	// ArbitrationFail blocks the insert until the store is reachable.
	ArbitrationFail ArbitrationPolicy = "fail"
	// ArbitrationActivate inserts the document as Active without arbitration.
	// Risks two Active versions of the same document.
	ArbitrationActivate ArbitrationPolicy = "activate"
)

// Config represents the complete sopindex configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Storage    StorageConfig    `yaml:"storage" json:"storage"`
	Ingest     IngestConfig     `yaml:"ingest" json:"ingest"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// StorageConfig configures where indexes and metadata live.
type StorageConfig struct {
	// DataDir is the directory holding the SQLite database, the keyword
	// index, and the vector index. Empty means ~/.sopindex/data.
	DataDir string `yaml:"data_dir" json:"data_dir"`
	// SQLiteCacheMB is the SQLite page cache size in MB (default: 64).
	SQLiteCacheMB int `yaml:"sqlite_cache_mb" json:"sqlite_cache_mb"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	// Workers is the number of concurrent file workers (default: NumCPU).
	Workers int `yaml:"workers" json:"workers"`
	// Extensions are the file extensions accepted for ingestion.
	Extensions []string `yaml:"extensions" json:"extensions"`
	// OnArbitrationError selects the policy when the version lookup fails:
	// "fail" (default) or "activate".
	OnArbitrationError ArbitrationPolicy `yaml:"on_arbitration_error" json:"on_arbitration_error"`
	// WatchDebounce is the settle time for watch-folder ingestion.
	WatchDebounce string `yaml:"watch_debounce" json:"watch_debounce"`
}

// ChunkingConfig configures passage construction.
type ChunkingConfig struct {
	// ChunkSize is the sentence-splitter target size in characters.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`
	// ChunkOverlap is the sentence-splitter overlap in characters.
	ChunkOverlap int `yaml:"chunk_overlap" json:"chunk_overlap"`
	// MaxChunkChars is the hard budget above which a section is sub-split.
	MaxChunkChars int `yaml:"max_chunk_chars" json:"max_chunk_chars"`
	// MinChunkChars drops fragments shorter than this after cleaning.
	MinChunkChars int `yaml:"min_chunk_chars" json:"min_chunk_chars"`
}

// SearchConfig configures hybrid retrieval.
//
// BM25Weight and SemanticWeight must sum to 1.0. SemanticWeight is the
// alpha of the weighted fusion; 0.5 treats exact terminology (form
// numbers, reagent names) and paraphrase equally, which suits regulated
// prose.
type SearchConfig struct {
	BM25Weight     float64 `yaml:"bm25_weight" json:"bm25_weight"`
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`

	// TopK is the number of passages returned by focused retrieval.
	TopK int `yaml:"top_k" json:"top_k"`
	// RelevanceFloor drops fused results scoring below it (0 disables).
	RelevanceFloor float64 `yaml:"relevance_floor" json:"relevance_floor"`

	// DiscoverCandidates is the keyword-only candidate pool for discovery.
	DiscoverCandidates int `yaml:"discover_candidates" json:"discover_candidates"`
	// DiscoverSnippets caps snippets per document group.
	DiscoverSnippets int `yaml:"discover_snippets" json:"discover_snippets"`
	// SnippetRadius is the number of characters kept around a matched term.
	SnippetRadius int `yaml:"snippet_radius" json:"snippet_radius"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider selects the embedder: "ollama", "static", or empty for
	// auto-detection (Ollama when reachable, static otherwise).
	Provider   string `yaml:"provider" json:"provider"`
	Model      string `yaml:"model" json:"model"`
	Dimensions int    `yaml:"dimensions" json:"dimensions"`
	BatchSize  int    `yaml:"batch_size" json:"batch_size"`
	// OllamaHost is the Ollama API endpoint (default: http://localhost:11434).
	OllamaHost string `yaml:"ollama_host" json:"ollama_host"`
	// CacheSize is the LRU embedding cache capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	// File is the log file path. Empty uses the default location.
	File string `yaml:"file" json:"file"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			DataDir:       defaultDataDir(),
			SQLiteCacheMB: 64,
		},
		Ingest: IngestConfig{
			Workers:            runtime.NumCPU(),
			Extensions:         []string{".pdf", ".md", ".txt"},
			OnArbitrationError: ArbitrationFail,
			WatchDebounce:      "500ms",
		},
		Chunking: ChunkingConfig{
			ChunkSize:     1024,
			ChunkOverlap:  200,
			MaxChunkChars: 2000,
			MinChunkChars: 15,
		},
		Search: SearchConfig{
			BM25Weight:         0.5,
			SemanticWeight:     0.5,
			TopK:               7,
			RelevanceFloor:     0.25,
			DiscoverCandidates: 100,
			DiscoverSnippets:   3,
			SnippetRadius:      60,
		},
		Embeddings: EmbeddingsConfig{
			Provider:   "", // Empty triggers auto-detection: Ollama -> Static
			Model:      "nomic-embed-text",
			Dimensions: 0, // Auto-detect from embedder
			BatchSize:  32,
			OllamaHost: "",
			CacheSize:  1000,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// defaultDataDir returns the default index data directory.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".sopindex", "data")
	}
	return filepath.Join(home, ".sopindex", "data")
}

// GetUserConfigPath returns the path to the user/global configuration file.
// It follows XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/sopindex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/sopindex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "sopindex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "sopindex", "config.yaml")
	}
	return filepath.Join(home, ".config", "sopindex", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration starting from the specified directory.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userPath := GetUserConfigPath(); fileExists(userPath) {
		if err := cfg.loadYAML(userPath); err != nil {
			return nil, fmt.Errorf("failed to load user config: %w", err)
		}
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// loadFromFile attempts to load configuration from .sopindex.yaml or .sopindex.yml.
func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, ".sopindex.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, ".sopindex.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	// No config file is fine - use defaults
	return nil
}

// loadYAML loads and merges configuration from a YAML file.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	c.applyExplicitZeroes(data)
	return nil
}

// explicitZeroes re-reads the keys where zero is a meaningful setting,
// with pointer fields so an explicit `0` in the file is distinguishable
// from an absent key. mergeWith cannot tell the two apart.
type explicitZeroes struct {
	Search struct {
		BM25Weight     *float64 `yaml:"bm25_weight"`
		SemanticWeight *float64 `yaml:"semantic_weight"`
		RelevanceFloor *float64 `yaml:"relevance_floor"`
	} `yaml:"search"`
}

// applyExplicitZeroes lets a config file disable the relevance floor or
// run single-leg fusion (e.g. `bm25_weight: 0`, `semantic_weight: 1`).
func (c *Config) applyExplicitZeroes(data []byte) {
	var z explicitZeroes
	if err := yaml.Unmarshal(data, &z); err != nil {
		return
	}
	if z.Search.BM25Weight != nil {
		c.Search.BM25Weight = *z.Search.BM25Weight
	}
	if z.Search.SemanticWeight != nil {
		c.Search.SemanticWeight = *z.Search.SemanticWeight
	}
	if z.Search.RelevanceFloor != nil {
		c.Search.RelevanceFloor = *z.Search.RelevanceFloor
	}
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	// Storage
	if other.Storage.DataDir != "" {
		c.Storage.DataDir = other.Storage.DataDir
	}
	if other.Storage.SQLiteCacheMB != 0 {
		c.Storage.SQLiteCacheMB = other.Storage.SQLiteCacheMB
	}

	// Ingest
	if other.Ingest.Workers != 0 {
		c.Ingest.Workers = other.Ingest.Workers
	}
	if len(other.Ingest.Extensions) > 0 {
		c.Ingest.Extensions = other.Ingest.Extensions
	}
	if other.Ingest.OnArbitrationError != "" {
		c.Ingest.OnArbitrationError = other.Ingest.OnArbitrationError
	}
	if other.Ingest.WatchDebounce != "" {
		c.Ingest.WatchDebounce = other.Ingest.WatchDebounce
	}

	// Chunking
	if other.Chunking.ChunkSize != 0 {
		c.Chunking.ChunkSize = other.Chunking.ChunkSize
	}
	if other.Chunking.ChunkOverlap != 0 {
		c.Chunking.ChunkOverlap = other.Chunking.ChunkOverlap
	}
	if other.Chunking.MaxChunkChars != 0 {
		c.Chunking.MaxChunkChars = other.Chunking.MaxChunkChars
	}
	if other.Chunking.MinChunkChars != 0 {
		c.Chunking.MinChunkChars = other.Chunking.MinChunkChars
	}

	// Search
	// Explicit zeros for weights and floor are handled by
	// applyExplicitZeroes; mergeWith only sees non-zero values.
	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.TopK != 0 {
		c.Search.TopK = other.Search.TopK
	}
	if other.Search.RelevanceFloor != 0 {
		c.Search.RelevanceFloor = other.Search.RelevanceFloor
	}
	if other.Search.DiscoverCandidates != 0 {
		c.Search.DiscoverCandidates = other.Search.DiscoverCandidates
	}
	if other.Search.DiscoverSnippets != 0 {
		c.Search.DiscoverSnippets = other.Search.DiscoverSnippets
	}
	if other.Search.SnippetRadius != 0 {
		c.Search.SnippetRadius = other.Search.SnippetRadius
	}

	// Embeddings
	if other.Embeddings.Provider != "" {
		c.Embeddings.Provider = other.Embeddings.Provider
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Embeddings.OllamaHost != "" {
		c.Embeddings.OllamaHost = other.Embeddings.OllamaHost
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	// Logging
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies SOPINDEX_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("SOPINDEX_DATA_DIR"); v != "" {
		c.Storage.DataDir = v
	}

	// Support explicit zero values for weights via env vars
	if v := os.Getenv("SOPINDEX_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("SOPINDEX_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("SOPINDEX_TOP_K"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.TopK = k
		}
	}
	if v := os.Getenv("SOPINDEX_RELEVANCE_FLOOR"); v != "" {
		if f, err := parseFloat64(v); err == nil && f >= 0 {
			c.Search.RelevanceFloor = f
		}
	}

	if v := os.Getenv("SOPINDEX_EMBEDDINGS_PROVIDER"); v != "" {
		c.Embeddings.Provider = v
	}
	// SOPINDEX_EMBEDDER is an alias for SOPINDEX_EMBEDDINGS_PROVIDER
	if v := os.Getenv("SOPINDEX_EMBEDDER"); v != "" {
		c.Embeddings.Provider = v
	}
	if v := os.Getenv("SOPINDEX_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("SOPINDEX_OLLAMA_HOST"); v != "" {
		c.Embeddings.OllamaHost = v
	}

	if v := os.Getenv("SOPINDEX_ON_ARBITRATION_ERROR"); v != "" {
		c.Ingest.OnArbitrationError = ArbitrationPolicy(strings.ToLower(v))
	}
	if v := os.Getenv("SOPINDEX_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// parseFloat64 parses a string to float64, used for config parsing.
func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// FindProjectRoot finds the project root directory by walking up the
// directory tree looking for a .sopindex.yaml/.yml file or a .git directory.
func FindProjectRoot(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path: %w", err)
	}

	currentDir := absDir
	for {
		if fileExists(filepath.Join(currentDir, ".sopindex.yaml")) ||
			fileExists(filepath.Join(currentDir, ".sopindex.yml")) {
			return currentDir, nil
		}
		if dirExists(filepath.Join(currentDir, ".git")) {
			return currentDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root, return original directory
			return absDir, nil
		}
		currentDir = parentDir
	}
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}

	sum := c.Search.BM25Weight + c.Search.SemanticWeight
	if math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + semantic_weight must equal 1.0, got %.2f", sum)
	}

	if c.Search.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", c.Search.TopK)
	}
	if c.Search.RelevanceFloor < 0 {
		return fmt.Errorf("relevance_floor must be non-negative, got %f", c.Search.RelevanceFloor)
	}
	if c.Search.DiscoverCandidates < 0 {
		return fmt.Errorf("discover_candidates must be non-negative, got %d", c.Search.DiscoverCandidates)
	}

	if c.Chunking.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must be non-negative, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize && c.Chunking.ChunkSize != 0 {
		return fmt.Errorf("chunk_overlap must be smaller than chunk_size, got %d >= %d",
			c.Chunking.ChunkOverlap, c.Chunking.ChunkSize)
	}
	if c.Chunking.MaxChunkChars != 0 && c.Chunking.MaxChunkChars < c.Chunking.ChunkSize {
		return fmt.Errorf("max_chunk_chars must be at least chunk_size, got %d < %d",
			c.Chunking.MaxChunkChars, c.Chunking.ChunkSize)
	}

	if c.Embeddings.Provider != "" { // Empty string triggers auto-detection
		validProviders := map[string]bool{"static": true, "ollama": true}
		if !validProviders[strings.ToLower(c.Embeddings.Provider)] {
			return fmt.Errorf("embeddings.provider must be 'static', 'ollama', or empty (auto-detect), got %s", c.Embeddings.Provider)
		}
	}

	switch c.Ingest.OnArbitrationError {
	case ArbitrationFail, ArbitrationActivate:
	default:
		return fmt.Errorf("ingest.on_arbitration_error must be 'fail' or 'activate', got %s", c.Ingest.OnArbitrationError)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
