package analysis

import "errors"

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrInvalidFormat  = errors.New("invalid response format")
	ErrAnalysisFailed = errors.New("AI analysis failed")
)

// AnalysisError wraps any failure of a remote analysis. It matches ErrAnalysisFailed and
// unwraps to its cause.
type AnalysisError struct {
	Cause error
}

func (e *AnalysisError) Error() string {
	if e.Cause == nil {
		return ErrAnalysisFailed.Error()
	}
	return ErrAnalysisFailed.Error() + ": " + e.Cause.Error()
}

func (e *AnalysisError) Is(target error) bool {
	return target == ErrAnalysisFailed
}

func (e *AnalysisError) Unwrap() error {
	return e.Cause
}

func wrapFailure(err error) error {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return err
	}
	return &AnalysisError{Cause: err}
}
