// Package errors holds the domain error kinds returned by the ledger services.
package errors

import "errors"

// DomainError is a business-rule failure. It is never retried and is safe
// to show to the caller.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// Code returns the DomainError code carried by err, or "" if there is none.
func Code(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsDomainError reports whether err wraps a DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
