package utils

import (
	"fmt"
	"io"
	"os"
)

// ReadStdin reads all content from stdin.
// Returns an error if stdin is empty, is a terminal (no piped data), or cannot be read.
func ReadStdin() ([]byte, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat stdin: %w", err)
	}

	if (stat.Mode() & os.ModeCharDevice) != 0 {
		return nil, fmt.Errorf("no data provided on stdin (hint: pipe your private key to this command)")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read from stdin: %w", err)
	}

	if len(data) == 0 {
		return nil, fmt.Errorf("stdin is empty")
	}

	return data, nil
}

// LineWriter inserts a line break into the stream after every Width bytes.
// It is meant to sit between a base64 encoder and its destination.
type LineWriter struct {
	W       io.Writer
	Width   int
	Newline string
	col     int
}

// NewLineWriter returns a LineWriter breaking lines at width with the given separator.
func NewLineWriter(w io.Writer, width int, newline string) *LineWriter {
	return &LineWriter{W: w, Width: width, Newline: newline}
}

func (l *LineWriter) Write(p []byte) (int, error) {
	written := 0
	for len(p) > 0 {
		if l.col == l.Width {
			if _, err := io.WriteString(l.W, l.Newline); err != nil {
				return written, err
			}
			l.col = 0
		}
		n := min(l.Width-l.col, len(p))
		m, err := l.W.Write(p[:n])
		written += m
		l.col += m
		if err != nil {
			return written, err
		}
		p = p[n:]
	}
	return written, nil
}

// Close terminates a non-empty last line.
func (l *LineWriter) Close() error {
	if l.col == 0 {
		return nil
	}
	l.col = 0
	_, err := io.WriteString(l.W, l.Newline)
	return err
}

// Rewind seeks a stream back to its start.
func Rewind(s io.Seeker) error {
	if _, err := s.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind stream: %w", err)
	}
	return nil
}
