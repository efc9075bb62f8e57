// Package feed reads and writes streams carrying consecutive FAST messages.
// FAST data is self-delimiting given the template set, so a feed is just the
// concatenation of messages; the scanner keeps one buffered cursor over the
// underlying reader across calls.
package feed

import (
	"bufio"
	"io"

	"fastcodec/pkg/fast"
)

// Scanner decodes consecutive messages from a byte stream. Dictionary state
// carries across messages, as required for a single FAST session.
type Scanner struct {
	dec *fast.Decoder
	r   *bufio.Reader
}

// NewScanner wraps r for message-at-a-time decoding with dec.
func NewScanner(dec *fast.Decoder, r io.Reader) *Scanner {
	return &Scanner{dec: dec, r: bufio.NewReader(r)}
}

// Scan decodes the next message into f. At a clean end of the stream it
// returns fast.ErrEOF; any other error means the session is unrecoverable
// mid-message and the caller should reset or discard the decoder.
func (s *Scanner) Scan(f fast.MessageFactory) error {
	return s.dec.DecodeReader(s.r, f)
}

// Writer encodes consecutive messages onto a byte stream.
type Writer struct {
	enc *fast.Encoder
	w   io.Writer
}

// NewWriter wraps w for message-at-a-time encoding with enc.
func NewWriter(enc *fast.Encoder, w io.Writer) *Writer {
	return &Writer{enc: enc, w: w}
}

// Write encodes one message supplied by src onto the stream.
func (w *Writer) Write(src fast.MessageVisitor) error {
	return w.enc.EncodeWriter(w.w, src)
}
