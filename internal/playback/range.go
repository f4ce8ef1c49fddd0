package playback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrInvalidRange  = errors.New("invalid range format")
	ErrUnsatisfiable = errors.New("range not satisfiable")
)

// Range is an inclusive byte span of a media file.
type Range struct {
	Start int64
	End   int64
}

func (r Range) ContentLength() int64 {
	return r.End - r.Start + 1
}

func (r Range) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// ParseRange reads the Range header a preview player sends for a file of
// size bytes. No header yields nil. Players ask for one span at a time, so
// any span after the first is dropped.
func ParseRange(header string, size int64) (*Range, error) {
	if header == "" {
		return nil, nil
	}
	set, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrInvalidRange
	}
	set, _, _ = strings.Cut(set, ",")
	from, to, ok := strings.Cut(strings.TrimSpace(set), "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	var (
		r   Range
		err error
	)
	if from == "" {
		r, err = tail(to, size)
	} else {
		r, err = span(from, to, size)
	}
	if err != nil {
		return nil, err
	}
	if r.Start > r.End || r.Start >= size {
		return nil, ErrUnsatisfiable
	}
	r.End = min(r.End, size-1)
	return &r, nil
}

// tail is "bytes=-n": the last n bytes, where an MP4 often keeps its index.
func tail(n string, size int64) (Range, error) {
	count, err := strconv.ParseInt(n, 10, 64)
	if err != nil || count <= 0 {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: max(size-count, 0), End: size - 1}, nil
}

// span is "bytes=a-" or "bytes=a-b".
func span(from, to string, size int64) (Range, error) {
	start, err := strconv.ParseInt(from, 10, 64)
	if err != nil || start < 0 {
		return Range{}, ErrInvalidRange
	}
	if to == "" {
		return Range{Start: start, End: size - 1}, nil
	}
	end, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return Range{}, ErrInvalidRange
	}
	return Range{Start: start, End: end}, nil
}
