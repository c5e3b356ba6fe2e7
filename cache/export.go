package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// ExportVersion is written to every export and checked on import.
const ExportVersion = "2"

// ExportFormat represents the JSON structure for store export/import.
type ExportFormat struct {
	Version    string            `json:"version"`
	ExportedAt string            `json:"exported_at"`
	Entries    []ExportEntry     `json:"entries"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// ExportEntry represents a single store entry.
type ExportEntry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// Exporter provides store export functionality.
type Exporter struct {
	store ExportableStore
	now   func() time.Time
}

// NewExporter creates a new store exporter.
func NewExporter(store ExportableStore) *Exporter {
	return &Exporter{store: store, now: time.Now}
}

// Export writes the live store contents to w in JSON format.
func (e *Exporter) Export(ctx context.Context, w io.Writer, metadata map[string]string) error {
	entries, err := e.store.Entries(ctx)
	if err != nil {
		return fmt.Errorf("getting store entries: %w", err)
	}

	export := ExportFormat{
		Version:    ExportVersion,
		ExportedAt: e.now().UTC().Format(time.RFC3339),
		Entries:    make([]ExportEntry, 0, len(entries)),
		Metadata:   metadata,
	}
	for _, entry := range entries {
		out := ExportEntry{Key: entry.Key, Value: string(entry.Value)}
		if !entry.ExpiresAt.IsZero() {
			out.ExpiresAt = entry.ExpiresAt.UTC().Format(time.RFC3339)
		}
		export.Entries = append(export.Entries, out)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(export); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	return nil
}

// ExportToFile exports the store to a file.
// The path is provided by the caller and is intentionally user-controlled.
func (e *Exporter) ExportToFile(ctx context.Context, path string, metadata map[string]string) error {
	f, err := os.Create(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	return e.Export(ctx, f, metadata)
}

// Importer provides store import functionality.
type Importer struct {
	store Store
	now   func() time.Time
}

// NewImporter creates a new store importer.
func NewImporter(store Store) *Importer {
	return &Importer{store: store, now: time.Now}
}

// Import reads entries from r and writes them with their remaining TTL.
// Entries that have already expired are skipped.
func (i *Importer) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	var export ExportFormat
	if err := json.NewDecoder(r).Decode(&export); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return nil, fmt.Errorf("unsupported export version %q", export.Version)
	}

	result := &ImportResult{
		Version:  export.Version,
		Metadata: export.Metadata,
	}

	now := i.now()
	for _, entry := range export.Entries {
		var ttl time.Duration
		if entry.ExpiresAt != "" {
			at, err := time.Parse(time.RFC3339, entry.ExpiresAt)
			if err != nil {
				result.Failed++
				continue
			}
			ttl = at.Sub(now)
			if ttl <= 0 {
				result.Skipped++
				continue
			}
		}

		if err := i.store.Set(ctx, entry.Key, []byte(entry.Value), ttl); err != nil {
			result.Failed++
			continue
		}
		result.Imported++
	}

	return result, nil
}

// ImportFromFile imports store entries from a file.
// The path is provided by the caller and is intentionally user-controlled.
func (i *Importer) ImportFromFile(ctx context.Context, path string) (*ImportResult, error) {
	f, err := os.Open(path) // #nosec G304 - path is intentionally user-provided
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	return i.Import(ctx, f)
}

// ImportResult contains statistics about the import operation.
type ImportResult struct {
	Version  string
	Metadata map[string]string
	Imported int
	Skipped  int
	Failed   int
}
