package installer

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/h2non/filetype/matchers"
	"go.uber.org/zap"
)

// InstallManifestArchive verifies the archive really is a zip, then
// extracts every .manifest file into the depot cache directory. The lua
// scripts inside archives are handled separately by the caller; this only
// places manifests.
func InstallManifestArchive(archivePath, depotCacheDir string, log *zap.Logger) (int, error) {
	head := make([]byte, 262)
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	n, _ := io.ReadFull(f, head)
	f.Close()

	kind, err := filetype.Match(head[:n])
	if err != nil || kind != matchers.TypeZip {
		return 0, fmt.Errorf("%s is not a zip archive", filepath.Base(archivePath))
	}

	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	if err := os.MkdirAll(depotCacheDir, 0755); err != nil {
		return 0, err
	}

	extracted := 0
	for _, entry := range r.File {
		name := filepath.Base(entry.Name)
		if !strings.HasSuffix(name, ".manifest") || entry.FileInfo().IsDir() {
			continue
		}
		if err := extractEntry(entry, filepath.Join(depotCacheDir, name)); err != nil {
			return extracted, fmt.Errorf("extracting %s: %w", name, err)
		}
		extracted++
		log.Debug("extracted manifest", zap.String("name", name))
	}

	if extracted == 0 {
		return 0, fmt.Errorf("archive contains no manifest files")
	}

	log.Info("installed manifests",
		zap.String("archive", filepath.Base(archivePath)),
		zap.Int("count", extracted))
	return extracted, nil
}

// ReadArchiveScript returns the contents of the first .lua file in the
// archive, or an empty string when none exists.
func ReadArchiveScript(archivePath string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", fmt.Errorf("opening archive: %w", err)
	}
	defer r.Close()

	for _, entry := range r.File {
		if !strings.HasSuffix(entry.Name, ".lua") || entry.FileInfo().IsDir() {
			continue
		}
		rc, err := entry.Open()
		if err != nil {
			return "", err
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", nil
}

func extractEntry(entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
