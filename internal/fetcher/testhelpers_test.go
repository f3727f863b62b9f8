package fetcher

import "os"

// writeFile is a helper that writes data to a file path.
func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}
