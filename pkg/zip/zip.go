// Package zip bundles generated media artifacts into a downloadable archive.
package zip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"time"
)

type Asset struct {
	Filename string
	MIME     string
	Data     []byte
}

// ArchiveAssets writes every asset into a single zip archive. Entries keep
// their media filename and carry the archive build time as modification time.
func ArchiveAssets(assets []Asset) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()
	for _, asset := range assets {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     asset.Filename,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return nil, fmt.Errorf("zip: create entry %s: %w", asset.Filename, err)
		}
		if _, err := w.Write(asset.Data); err != nil {
			return nil, fmt.Errorf("zip: write entry %s: %w", asset.Filename, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip: finalize archive: %w", err)
	}
	return buf.Bytes(), nil
}
