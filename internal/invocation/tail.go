package invocation

import (
	"io"
	"os"
	"strings"
)

// ReadCompleteLines returns the complete lines appended to path since
// offset, with the offset to resume from. A trailing partial line stays
// unconsumed: the sink may be mid-append, and the next poll picks it up
// whole. A missing file reads as empty so tails can start before the
// first write.
func ReadCompleteLines(path string, offset int64) ([]string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, offset, nil
		}
		return nil, offset, err
	}
	defer f.Close()

	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return nil, offset, err
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, offset, err
	}
	if len(data) == 0 {
		return nil, offset, nil
	}

	end := strings.LastIndexByte(string(data), '\n')
	if end < 0 {
		return nil, offset, nil
	}
	complete := string(data[:end])

	var lines []string
	for _, line := range strings.Split(complete, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, offset + int64(end) + 1, nil
}
