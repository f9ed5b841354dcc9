package retry

// Error lets an operation say whether its failure is worth another attempt.
// Errors that do not implement it are treated as temporary.
type Error interface {
	Temporary() bool
	error
}

type permanentError struct {
	error
}

func (e *permanentError) Temporary() bool { return false }

func (e *permanentError) Unwrap() error {
	return e.error
}

// Abort marks err as permanent. Do stops and returns err itself.
//
//	if errors.Is(err, ErrNotFound) {
//	    return retry.Abort(err)
//	}
func Abort(err error) Error {
	return &permanentError{err}
}
