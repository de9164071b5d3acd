package config

import (
	"fmt"
	"strings"
)

// Validate checks the configuration for invalid values.
// Called by Load before any component is constructed; returns the first
// violation found, wrapped around a sentinel error for errors.Is checks.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.ModelName) == "" {
		return fmt.Errorf("%w: model_name must not be empty", ErrInvalidModelName)
	}
	if strings.TrimSpace(c.EmbedderModel) == "" {
		return fmt.Errorf("%w: embedder_model must not be empty", ErrInvalidEmbedderModel)
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: postgres_host must not be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: postgres_port must be 1-65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}

	// Chunks below ~32 estimated tokens degenerate into per-sentence noise;
	// above 8192 a single chunk exceeds any practical embedding input.
	if c.ChunkSize < 32 || c.ChunkSize > 8192 {
		return fmt.Errorf("%w: chunk_size must be 32-8192, got %d", ErrInvalidChunkSize, c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: chunk_overlap must be 0..chunk_size-1, got %d", ErrInvalidChunkSize, c.ChunkOverlap)
	}

	if c.TopK < 1 || c.TopK > 100 {
		return fmt.Errorf("%w: top_k must be 1-100, got %d", ErrInvalidTopK, c.TopK)
	}

	if c.AutoSyncHours < 0 {
		return fmt.Errorf("%w: auto_sync_hours must not be negative, got %d", ErrInvalidAutoSyncHours, c.AutoSyncHours)
	}

	return nil
}
