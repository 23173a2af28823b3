package output

import (
	"bufio"
	"bytes"
	"os"
)

const maxScannerBuffer = 1024 * 1024

// ReadLogFileTail returns the last maxLines lines of a test run log and the
// number of lines left out. A missing file yields no lines. maxLines <= 0
// returns everything.
func ReadLogFileTail(path string, maxLines int) ([]string, int, error) {
	if path == "" {
		return nil, 0, nil
	}

	// #nosec G304 - path comes from a test run directory
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, err
	}
	defer func() { _ = file.Close() }()

	var lines []string
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, maxScannerBuffer), maxScannerBuffer)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, err
	}

	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, 0, nil
	}
	if bytes.IndexByte([]byte(lines[0]), 0) >= 0 {
		return []string{"(binary data)"}, 0, nil
	}

	if maxLines <= 0 || len(lines) <= maxLines {
		return lines, 0, nil
	}
	truncated := len(lines) - maxLines
	return lines[truncated:], truncated, nil
}
