package database

import "fmt"

// CorruptEncodingError reports a stored face encoding that cannot be used
// for matching: its length disagrees with the recorded dimensionality, or
// the recorded dimensionality disagrees with the configured model. The
// owning roster entry is excluded from matching; the condition never aborts
// a whole match run.
type CorruptEncodingError struct {
	USN  string
	Got  int
	Want int
}

func (e *CorruptEncodingError) Error() string {
	return fmt.Sprintf("corrupt encoding for %s: got %d values, want %d", e.USN, e.Got, e.Want)
}

// ValidateEncoding checks a stored encoding against the expected model
// dimensionality. Returns a CorruptEncodingError on mismatch, nil for an
// absent encoding (not enrolled is not corrupt).
func ValidateEncoding(usn string, encoding []float32, wantDim int) error {
	if len(encoding) == 0 {
		return nil
	}
	if len(encoding) != wantDim {
		return &CorruptEncodingError{USN: usn, Got: len(encoding), Want: wantDim}
	}
	return nil
}
