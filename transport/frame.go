package transport

import (
	"bufio"
	"fmt"

	"github.com/tywrap-go/tywrap/bridgeerr"
)

// lineReader frames newline-delimited JSON off a *bufio.Reader, bounding
// memory use by rejecting any line that grows past maxLen before a
// terminator arrives (spec.md §4.6 "Framing").
type lineReader struct {
	r      *bufio.Reader
	maxLen int
}

// ReadLine returns one complete line (without its terminator). An empty
// result with a nil error means an empty line was read; callers skip it.
func (lr *lineReader) ReadLine() (string, error) {
	var buf []byte
	for {
		chunk, isPrefix, err := lr.r.ReadLine()
		if err != nil {
			return "", err
		}
		buf = append(buf, chunk...)
		if len(buf) > lr.maxLen {
			snippet := buf
			if len(snippet) > 120 {
				snippet = snippet[:120]
			}
			return "", bridgeerr.NewProtocol(fmt.Sprintf(
				"stdout line exceeds max length %d bytes (got more); snippet: %q; Python must not print to stdout outside the bridge",
				lr.maxLen, snippet), nil)
		}
		if !isPrefix {
			return string(buf), nil
		}
	}
}
