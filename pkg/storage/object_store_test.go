package storage

import (
	"context"
	"strings"
	"testing"
)

func TestCoverKey(t *testing.T) {
	tests := []struct {
		contentType string
		want        string
	}{
		{"image/jpeg", "covers/b1.jpg"},
		{"image/png", "covers/b1.png"},
		{"image/webp", "covers/b1.webp"},
		{"application/pdf", "covers/b1.bin"},
	}
	for _, tt := range tests {
		if got := CoverKey("b1", tt.contentType); got != tt.want {
			t.Errorf("CoverKey(b1, %s) = %s, want %s", tt.contentType, got, tt.want)
		}
	}
}

func TestAllowedCoverType(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "IMAGE/WEBP", " image/png "} {
		if !AllowedCoverType(ct) {
			t.Errorf("AllowedCoverType(%q) = false, want true", ct)
		}
	}
	for _, ct := range []string{"", "application/pdf", "text/html", "image/gif"} {
		if AllowedCoverType(ct) {
			t.Errorf("AllowedCoverType(%q) = true, want false", ct)
		}
	}
}

func TestMemoryCoverStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCoverStore()

	if err := store.PutCover(ctx, "covers/b1.jpg", strings.NewReader("jpegdata"), 8, "image/jpeg"); err != nil {
		t.Fatalf("PutCover: %v", err)
	}
	url, err := store.CoverURL(ctx, "covers/b1.jpg")
	if err != nil {
		t.Fatalf("CoverURL: %v", err)
	}
	if url != "memory://covers/b1.jpg" {
		t.Errorf("url = %s", url)
	}
	if err := store.DeleteCover(ctx, "covers/b1.jpg"); err != nil {
		t.Fatalf("DeleteCover: %v", err)
	}
	if _, err := store.CoverURL(ctx, "covers/b1.jpg"); err == nil {
		t.Error("CoverURL after delete should fail")
	}
}
