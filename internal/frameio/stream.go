package frameio

import (
	"bufio"
	"context"
	"fmt"
	"io"
)

// MaxLineSize bounds a single frame line.
const MaxLineSize = 10 << 20

// Handler turns one input line into one output line. Returning an error
// passes the input line through unchanged.
type Handler func(ctx context.Context, line []byte) ([]byte, error)

// ErrorFunc is told about lines a Handler rejected.
type ErrorFunc func(lineNo int, err error)

// Run reads lines from r, passes each to h and writes the result to w,
// one line per input line, until r is exhausted or ctx is done.
func Run(ctx context.Context, r io.Reader, w io.Writer, h Handler, onError ErrorFunc) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64<<10), MaxLineSize)
	out := bufio.NewWriter(w)
	defer out.Flush()

	lineNo := 0
	for s.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		lineNo++
		line := s.Bytes()
		if len(line) == 0 {
			continue
		}

		result, err := h(ctx, line)
		if err != nil {
			if onError != nil {
				onError(lineNo, err)
			}
			result = line
		}
		if _, err := out.Write(result); err != nil {
			return fmt.Errorf("frameio: write line %d: %w", lineNo, err)
		}
		if err := out.WriteByte('\n'); err != nil {
			return fmt.Errorf("frameio: write line %d: %w", lineNo, err)
		}
		// Downstream stages read line by line, so do not hold results back.
		if err := out.Flush(); err != nil {
			return fmt.Errorf("frameio: flush line %d: %w", lineNo, err)
		}
	}
	if err := s.Err(); err != nil {
		return fmt.Errorf("frameio: read line %d: %w", lineNo+1, err)
	}
	return nil
}
