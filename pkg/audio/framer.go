package audio

// Framer re-chunks an arbitrary byte stream into fixed-size PCM16 frames.
type Framer struct {
	size int
	buf  []byte
}

// NewFramer returns a framer emitting frames of samples PCM16 samples.
func NewFramer(samples int) *Framer {
	if samples <= 0 {
		samples = 4096
	}
	size := samples * bytesPerSample
	return &Framer{size: size, buf: make([]byte, 0, size)}
}

// FrameSize returns the frame length in bytes.
func (f *Framer) FrameSize() int {
	return f.size
}

// Push buffers p and returns every complete frame. Returned frames do not alias p.
func (f *Framer) Push(p []byte) [][]byte {
	f.buf = append(f.buf, p...)
	var frames [][]byte
	for len(f.buf) >= f.size {
		frame := make([]byte, f.size)
		copy(frame, f.buf[:f.size])
		frames = append(frames, frame)
		f.buf = f.buf[f.size:]
	}
	if len(f.buf) == 0 {
		f.buf = f.buf[:0:0]
	}
	return frames
}

// Pending returns the number of buffered bytes not yet framed.
func (f *Framer) Pending() int {
	return len(f.buf)
}

// Reset drops buffered bytes.
func (f *Framer) Reset() {
	f.buf = nil
}
