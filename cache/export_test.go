package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestExporter_Export(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryStore(WithClock(clock.Now))
	c.Set(ctx, "key1", []byte(`{"translations":[]}`), 3*time.Hour)
	c.Set(ctx, "key2", []byte(`[]`), 0)

	exporter := NewExporter(c)
	exporter.now = clock.Now
	var buf bytes.Buffer

	if err := exporter.Export(ctx, &buf, map[string]string{"backend": "memory"}); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var export ExportFormat
	if err := json.Unmarshal(buf.Bytes(), &export); err != nil {
		t.Fatalf("Failed to parse export: %v", err)
	}

	if export.Version != ExportVersion {
		t.Errorf("Expected version %s, got %s", ExportVersion, export.Version)
	}
	if len(export.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(export.Entries))
	}
	if export.Entries[0].ExpiresAt != "2024-01-01T15:00:00Z" {
		t.Errorf("Unexpected expiry %q", export.Entries[0].ExpiresAt)
	}
	if export.Entries[1].ExpiresAt != "" {
		t.Errorf("Entry without ttl should have no expiry, got %q", export.Entries[1].ExpiresAt)
	}
	if export.Metadata["backend"] != "memory" {
		t.Errorf("Expected metadata backend=memory, got %v", export.Metadata)
	}
}

func TestImporter_Import(t *testing.T) {
	ctx := context.Background()
	jsonData := `{
		"version": "2",
		"exported_at": "2024-01-01T12:00:00Z",
		"entries": [
			{"key": "key1", "value": "{\"a\":1}", "expires_at": "2024-01-01T14:00:00Z"},
			{"key": "key2", "value": "[]"},
			{"key": "old", "value": "[]", "expires_at": "2024-01-01T11:00:00Z"},
			{"key": "bad", "value": "[]", "expires_at": "yesterday"}
		]
	}`

	clock := newFakeClock()
	c := NewMemoryStore(WithClock(clock.Now))
	importer := NewImporter(c)
	importer.now = clock.Now

	result, err := importer.Import(ctx, strings.NewReader(jsonData))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	if result.Imported != 2 || result.Skipped != 1 || result.Failed != 1 {
		t.Errorf("Unexpected result: %+v", result)
	}

	if val, ok := c.Get(ctx, "key1"); !ok || string(val) != `{"a":1}` {
		t.Errorf("key1 not found or wrong value: %s", val)
	}

	clock.Advance(2 * time.Hour)
	if _, ok := c.Get(ctx, "key1"); ok {
		t.Error("key1 should keep its original expiry")
	}
	if _, ok := c.Get(ctx, "key2"); !ok {
		t.Error("key2 has no expiry and should still be present")
	}
}

func TestImporter_InvalidJSON(t *testing.T) {
	_, err := NewImporter(NewMemoryStore()).Import(context.Background(), strings.NewReader("invalid json"))
	if err == nil {
		t.Error("Expected error for invalid JSON")
	}
}

func TestImporter_UnsupportedVersion(t *testing.T) {
	_, err := NewImporter(NewMemoryStore()).Import(context.Background(), strings.NewReader(`{"version":"1.0","entries":[]}`))
	if err == nil {
		t.Error("Expected error for unsupported version")
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	src := NewMemoryStore(WithClock(clock.Now))
	src.Set(ctx, "a", []byte(`{"translations":[{"language":"fr_FR"}]}`), 3*time.Hour)
	src.Set(ctx, "b", []byte(`[]`), time.Hour)
	src.Set(ctx, "c", []byte(`{}`), 0)

	exporter := NewExporter(src)
	exporter.now = clock.Now
	var buf bytes.Buffer
	if err := exporter.Export(ctx, &buf, nil); err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	dst := NewMemoryStore(WithClock(clock.Now))
	importer := NewImporter(dst)
	importer.now = clock.Now
	if _, err := importer.Import(ctx, &buf); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	want, _ := src.Entries(ctx)
	got, _ := dst.Entries(ctx)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("entries differ after round trip (-want +got):\n%s", diff)
	}
}
