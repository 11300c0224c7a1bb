package writer

import "io"

// MemWriter captures reports in memory, appending each one.
type MemWriter struct {
	Buf []byte
}

// WriteReport appends buf.
func (w *MemWriter) WriteReport(buf []byte) error {
	w.Buf = append(w.Buf, buf...)
	return nil
}

// StreamWriter forwards reports to an io.Writer such as os.Stdout.
type StreamWriter struct {
	W io.Writer
}

// WriteReport writes buf to W.
func (w StreamWriter) WriteReport(buf []byte) error {
	_, err := w.W.Write(buf)
	return err
}
