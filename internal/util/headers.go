package util

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// CollectHeaders expands inputs into an ordered list of header files.
// Explicit file paths are kept in the given order even when excluded patterns
// would match them; directories are walked in lexical order and contribute
// every file accepted by isHeader that no exclude pattern matches.
func CollectHeaders(inputs []string, excludePatterns []string, isHeader func(string) bool) ([]string, error) {
	var headers []string

	for _, input := range inputs {
		info, err := os.Stat(input)
		if err != nil {
			return nil, fmt.Errorf("failed to stat header input: %w", err)
		}

		if !info.IsDir() {
			headers = append(headers, input)
			continue
		}

		err = filepath.WalkDir(input, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if path != input && ShouldExclude(path, d.Name(), excludePatterns) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}

			if !d.IsDir() && isHeader(path) {
				headers = append(headers, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to walk %s: %w", input, err)
		}
	}

	return headers, nil
}
