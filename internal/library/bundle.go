package library

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"
)

// writeBundle builds the session archive next to the stem files. The bundle
// contains every stem plus the metadata record, mirroring the directory a
// client would see.
func writeBundle(dir string, names []string, metaBytes []byte, stems map[string][]byte) error {
	file, err := os.Create(filepath.Join(dir, bundleFile))
	if err != nil {
		return fmt.Errorf("create bundle: %w", err)
	}
	defer file.Close()

	zw := zip.NewWriter(file)
	for _, name := range names {
		entry, err := zw.Create(name + stemSuffix)
		if err != nil {
			zw.Close()
			return fmt.Errorf("add stem %q to bundle: %w", name, err)
		}
		if _, err := entry.Write(stems[name]); err != nil {
			zw.Close()
			return fmt.Errorf("write stem %q to bundle: %w", name, err)
		}
	}

	entry, err := zw.Create(metadataFile)
	if err != nil {
		zw.Close()
		return fmt.Errorf("add metadata to bundle: %w", err)
	}
	if _, err := entry.Write(metaBytes); err != nil {
		zw.Close()
		return fmt.Errorf("write metadata to bundle: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize bundle: %w", err)
	}
	return file.Close()
}
