package repositories

import (
	"context"
	"errors"
	"io"
)

var (
	// ErrDecoderUnavailable means the decoding tool is missing or cannot be
	// started on this host. It says nothing about the audio itself.
	ErrDecoderUnavailable = errors.New("audio decoder unavailable")

	// ErrDecodeFailed means the decoder ran but did not finish cleanly:
	// non-zero exit, killed on timeout, or unreadable output.
	ErrDecodeFailed = errors.New("audio decode failed")
)

// AudioDecoder turns a compressed audio file into raw PCM.
type AudioDecoder interface {
	// Open starts decoding the file at path and returns a stream of mono,
	// little-endian float32 samples at sampleRate. Bytes become readable as
	// the decoder produces them.
	//
	// Close must always be called. It releases the decoder and reports
	// whether decoding finished cleanly (nil) or failed (ErrDecodeFailed).
	Open(ctx context.Context, path string, sampleRate int) (io.ReadCloser, error)
}
