package playback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// a 4 MiB clip as stored under its content key
const clipSize = 4 << 20

func TestParseRange_PlayerRequests(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   Range
	}{
		{name: "initial open", header: "bytes=0-", want: Range{0, clipSize - 1}},
		{name: "two byte sniff", header: "bytes=0-1", want: Range{0, 1}},
		{name: "index at tail", header: "bytes=-65536", want: Range{clipSize - 65536, clipSize - 1}},
		{name: "seek to middle", header: "bytes=2097152-", want: Range{2097152, clipSize - 1}},
		{name: "chunk past the end is clamped", header: "bytes=4194000-4200000", want: Range{4194000, clipSize - 1}},
		{name: "tail longer than clip", header: "bytes=-8388608", want: Range{0, clipSize - 1}},
		{name: "only the first span", header: "bytes=0-1023, 4096-8191", want: Range{0, 1023}},
		{name: "space after unit", header: "bytes= 512-1023", want: Range{512, 1023}},
		{name: "last byte", header: "bytes=4194303-", want: Range{clipSize - 1, clipSize - 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, clipSize)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestParseRange_NoHeader(t *testing.T) {
	got, err := ParseRange("", clipSize)
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseRange_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		header string
		size   int64
		want   error
	}{
		{"seek beyond a shorter blob", "bytes=4194304-", clipSize, ErrUnsatisfiable},
		{"backwards span", "bytes=900-100", clipSize, ErrUnsatisfiable},
		{"any span of an empty file", "bytes=0-", 0, ErrUnsatisfiable},
		{"zero length tail", "bytes=-0", clipSize, ErrInvalidRange},
		{"frames are not a unit", "frames=0-30", clipSize, ErrInvalidRange},
		{"missing dash", "bytes=1024", clipSize, ErrInvalidRange},
		{"negative start", "bytes=-5-10", clipSize, ErrInvalidRange},
		{"text offset", "bytes=start-end", clipSize, ErrInvalidRange},
		{"text end", "bytes=0-end", clipSize, ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.header, tt.size)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, got)
		})
	}
}

func TestRange_Headers(t *testing.T) {
	r := Range{Start: clipSize - 65536, End: clipSize - 1}
	assert.EqualValues(t, 65536, r.ContentLength())
	assert.Equal(t, "bytes 4128768-4194303/4194304", r.ContentRange(clipSize))

	one := Range{}
	assert.EqualValues(t, 1, one.ContentLength())
	assert.Equal(t, "bytes 0-0/1", one.ContentRange(1))
}
