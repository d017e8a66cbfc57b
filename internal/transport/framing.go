package transport

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// maxFrameSize bounds a single inbound SSE frame (1MB).
const maxFrameSize = 1024 * 1024

// frameScanner incrementally parses SSE-framed input off a stream:
// "data: " lines accumulate into the current frame, a blank line
// completes it, comment lines are skipped. Partial lines are buffered
// until their newline arrives.
type frameScanner struct {
	reader  *bufio.Reader
	maxSize int
}

func newFrameScanner(r io.Reader, maxSize int) *frameScanner {
	return &frameScanner{
		reader:  bufio.NewReader(r),
		maxSize: maxSize,
	}
}

// Next reads the next complete frame's payload. Multi-line data fields
// are joined with newlines. Returns io.EOF when the stream ends; a
// final unterminated frame at EOF is still delivered.
func (s *frameScanner) Next() ([]byte, error) {
	var dataLines [][]byte
	size := 0

	for {
		line, err := s.reader.ReadBytes('\n')

		if len(line) > 0 {
			size += len(line)
			if size > s.maxSize {
				return nil, fmt.Errorf("frame exceeds maximum size of %d bytes", s.maxSize)
			}

			line = bytes.TrimSuffix(line, []byte("\n"))
			line = bytes.TrimSuffix(line, []byte("\r"))

			switch {
			case len(line) == 0:
				// Blank line completes the pending frame.
				if len(dataLines) > 0 {
					return bytes.Join(dataLines, []byte("\n")), nil
				}
			case line[0] == ':':
				// Comment line.
			default:
				if value, ok := bytes.CutPrefix(line, []byte("data:")); ok {
					if len(value) > 0 && value[0] == ' ' {
						value = value[1:]
					}
					dataLines = append(dataLines, value)
				}
				// Other fields (id, event, retry) carry nothing for
				// this transport and are ignored.
			}
		}

		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				// Unterminated final frame at EOF.
				return bytes.Join(dataLines, []byte("\n")), nil
			}
			return nil, err
		}
	}
}
