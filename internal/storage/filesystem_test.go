package storage

import (
	"context"
	"strings"
	"testing"
)

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "http://localhost:8080/static")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	url, err := store.Put(context.Background(), "u1/artifact.png", []byte{1, 2, 3}, "image/png")
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if url != "http://localhost:8080/static/u1/artifact.png" {
		t.Fatalf("url = %q", url)
	}

	data, contentType, err := store.Get(context.Background(), url)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(data) != 3 {
		t.Fatalf("data = %v", data)
	}
	if contentType != "image/png" {
		t.Fatalf("content type = %q", contentType)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), "")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	if _, err := store.Put(context.Background(), "../escape.png", []byte{1}, "image/png"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
	if _, err := store.Put(context.Background(), "u1/../../escape.png", []byte{1}, "image/png"); err == nil {
		t.Fatalf("expected nested traversal key to be rejected")
	}
}

func TestArtifactKey(t *testing.T) {
	key := ArtifactKey("user-1", "image/png")
	if !strings.HasPrefix(key, "user-1/") {
		t.Fatalf("key = %q, want owner prefix", key)
	}
	if !strings.HasSuffix(key, ".png") {
		t.Fatalf("key = %q, want png extension", key)
	}
	if key == ArtifactKey("user-1", "image/png") {
		t.Fatalf("consecutive keys should not collide")
	}
}

func TestExtensionForMIME(t *testing.T) {
	cases := map[string]string{
		"image/png":  ".png",
		"image/jpeg": ".jpg",
		"video/mp4":  ".mp4",
		"unknown":    ".bin",
	}
	for mime, want := range cases {
		if got := ExtensionForMIME(mime); got != want {
			t.Fatalf("ExtensionForMIME(%q) = %q, want %q", mime, got, want)
		}
	}
}
