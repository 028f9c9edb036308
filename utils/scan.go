package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ocha221/mojinet/etl"
)

// ScanETLFiles lists the decodable source files directly under dir,
// sorted by name. A source file is a bare section file like ETL8B2_00:
// a recognised prefix, an underscore, and no extension. Checksum
// sidecars and unpacked artifacts fail one of those checks and are
// skipped.
func ScanETLFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.Contains(name, "_") || filepath.Ext(name) != "" {
			continue
		}
		if _, err := etl.ResolveFormat(name); err != nil {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)
	return paths, nil
}
