package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/andresuchdata/conventicore/internal/config"
)

func TestLocalStorage_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewLocalStorage(t.TempDir())

	if err := s.UploadObject(ctx, "2025-08/forecast_2025-08.csv", []byte("sku\nA\n")); err != nil {
		t.Fatalf("UploadObject: %v", err)
	}
	if err := s.UploadObject(ctx, "2025-07/forecast_2025-07.csv", []byte("sku\n")); err != nil {
		t.Fatalf("UploadObject: %v", err)
	}

	objects, err := s.ListObjects(ctx, "2025-08/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objects) != 1 || objects[0].Key != "2025-08/forecast_2025-08.csv" || objects[0].Size != 6 {
		t.Fatalf("Expected one 6-byte object under 2025-08/, got %+v", objects)
	}

	dest := filepath.Join(t.TempDir(), "nested", "out.csv")
	if err := s.DownloadObject(ctx, objects[0].Key, dest); err != nil {
		t.Fatalf("DownloadObject: %v", err)
	}
	data, err := os.ReadFile(dest)
	if err != nil || string(data) != "sku\nA\n" {
		t.Errorf("Expected downloaded content, got %q (%v)", data, err)
	}
}

func TestNewMinioClient_Validation(t *testing.T) {
	testCases := []struct {
		name string
		cfg  config.StorageConfig
	}{
		{"no endpoint", config.StorageConfig{AccessKey: "a", SecretKey: "b", Bucket: "c"}},
		{"no credentials", config.StorageConfig{Endpoint: "s3.local", Bucket: "c"}},
		{"no bucket", config.StorageConfig{Endpoint: "s3.local", AccessKey: "a", SecretKey: "b"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewMinioClient(tc.cfg); err == nil {
				t.Errorf("Expected error for %s", tc.name)
			}
		})
	}

	if _, err := NewMinioClient(config.StorageConfig{
		Endpoint: "https://s3.local/", AccessKey: "a", SecretKey: "b", Bucket: "packs",
	}); err != nil {
		t.Errorf("Expected client for a scheme-qualified endpoint, got %v", err)
	}
}

func TestContentType(t *testing.T) {
	testCases := map[string]string{
		"a/forecast.csv":  "text/csv",
		"a/pack.xlsx":     "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"a/summary.json":  "application/json",
		"a/dashboard.txt": "text/plain; charset=utf-8",
		"a/unknown.bin":   "application/octet-stream",
	}
	for key, want := range testCases {
		if got := contentType(key); got != want {
			t.Errorf("contentType(%q): expected %q, got %q", key, want, got)
		}
	}
}
