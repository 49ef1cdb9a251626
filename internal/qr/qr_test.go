package qr_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	"talkvid/internal/qr"
	"talkvid/internal/testsupport"
)

func TestTextQRWritesCachedPNG(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ref, err := qr.TextQR(ctx, store, "https://example.org/talk", 256)
	if err != nil {
		t.Fatalf("TextQR: %v", err)
	}
	data, err := os.ReadFile(ref.Path)
	if err != nil {
		t.Fatalf("read png: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}

	again, err := qr.TextQR(ctx, store, "https://example.org/talk", 256)
	if err != nil {
		t.Fatalf("TextQR again: %v", err)
	}
	if again != ref || store.Builds() != 1 || store.Hits() != 1 {
		t.Fatalf("expected a cache hit, builds=%d hits=%d", store.Builds(), store.Hits())
	}
}

func TestTextQRRejectsEmptyText(t *testing.T) {
	store := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	if _, err := qr.TextQR(context.Background(), store, "", 0); err == nil {
		t.Fatalf("expected error for empty text")
	}
}
