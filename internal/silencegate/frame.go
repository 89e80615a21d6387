package silencegate

// Assembler cuts an arbitrarily chunked byte stream into fixed-size frames.
//
// Whole frames found inside a chunk are handed to emit without copying; only
// the tail that does not fill a frame is kept, so the buffer never holds more
// than one frame minus one byte between writes. Frames passed to emit are
// only valid for the duration of the call.
type Assembler struct {
	frameBytes int
	buf        []byte
	emit       func(frame []byte)
}

// NewAssembler returns an Assembler emitting frames of frameBytes bytes.
func NewAssembler(frameBytes int, emit func(frame []byte)) *Assembler {
	if frameBytes < 1 {
		frameBytes = 1
	}
	return &Assembler{
		frameBytes: frameBytes,
		buf:        make([]byte, 0, frameBytes),
		emit:       emit,
	}
}

// Write implements io.Writer. It never fails.
func (a *Assembler) Write(p []byte) (int, error) {
	n := len(p)

	// Complete the frame carried over from the previous chunk.
	if len(a.buf) > 0 {
		need := a.frameBytes - len(a.buf)
		if len(p) < need {
			a.buf = append(a.buf, p...)
			return n, nil
		}
		a.buf = append(a.buf, p[:need]...)
		p = p[need:]
		a.emit(a.buf)
		a.buf = a.buf[:0]
	}

	for len(p) >= a.frameBytes {
		a.emit(p[:a.frameBytes])
		p = p[a.frameBytes:]
	}

	a.buf = append(a.buf, p...)
	return n, nil
}

// Pending reports how many bytes are waiting for the rest of their frame.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

// Discard drops the trailing partial frame and returns its size. A partial
// frame at end of stream is never classified.
func (a *Assembler) Discard() int {
	n := len(a.buf)
	a.buf = a.buf[:0]
	return n
}
