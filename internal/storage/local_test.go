package storage

import (
	"context"
	"os"
	"testing"

	"github.com/andresuchdata/replenish/internal/config"
)

func TestLocalStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}

	loc, err := s.UploadObject(ctx, "region-1/2025-01-15/picking-list.csv", "text/csv", []byte("a,b\n"))
	if err != nil {
		t.Fatalf("UploadObject: %v", err)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "a,b\n" {
		t.Fatalf("stored content = %q, err %v", data, err)
	}

	if _, err := s.UploadObject(ctx, "region-2/x.csv", "text/csv", []byte("x")); err != nil {
		t.Fatalf("UploadObject: %v", err)
	}
	objs, err := s.ListObjects(ctx, "region-1/")
	if err != nil {
		t.Fatalf("ListObjects: %v", err)
	}
	if len(objs) != 1 || objs[0].Key != "region-1/2025-01-15/picking-list.csv" || objs[0].Size != 4 {
		t.Errorf("unexpected listing %+v", objs)
	}
}

func TestLocalStorageRejectsEscapingKeys(t *testing.T) {
	s, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	if _, err := s.UploadObject(context.Background(), "../outside.csv", "text/csv", nil); err == nil {
		t.Error("expected error for key outside root")
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	if _, err := New(context.Background(), config.StorageConfig{Backend: "ftp"}); err == nil {
		t.Error("expected error for unknown backend")
	}
	if _, err := New(context.Background(), config.StorageConfig{Backend: "minio"}); err == nil {
		t.Error("expected error for minio without endpoint")
	}
}
