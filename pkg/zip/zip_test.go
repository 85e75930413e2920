package zip

import (
	"archive/zip"
	"bytes"
	"testing"
)

func TestArchiveAssets(t *testing.T) {
	archive, err := ArchiveAssets([]Asset{
		{Filename: "image-1.png", MIME: "image/png", Data: []byte{1, 2}},
		{Filename: "video-1.mp4", MIME: "video/mp4", Data: []byte{3, 4, 5}},
	})
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 2 {
		t.Fatalf("entries = %d, want 2", len(zr.File))
	}
	if zr.File[0].Name != "image-1.png" || zr.File[1].Name != "video-1.mp4" {
		t.Fatalf("entries = %q, %q", zr.File[0].Name, zr.File[1].Name)
	}
	rc, err := zr.File[1].Open()
	if err != nil {
		t.Fatalf("open entry: %v", err)
	}
	defer rc.Close()
	var data bytes.Buffer
	if _, err := data.ReadFrom(rc); err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !bytes.Equal(data.Bytes(), []byte{3, 4, 5}) {
		t.Fatalf("entry data = %v", data.Bytes())
	}
}

func TestArchiveAssetsEmpty(t *testing.T) {
	archive, err := ArchiveAssets(nil)
	if err != nil {
		t.Fatalf("ArchiveAssets: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 0 {
		t.Fatalf("entries = %d, want 0", len(zr.File))
	}
}
