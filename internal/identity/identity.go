package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Identity is the canonical user code of a registered parQR account
type Identity string

func (id Identity) String() string {
	return string(id)
}

// ProfileURL renders the production profile link for the identity
func (id Identity) ProfileURL(baseURL string) string {
	return strings.TrimSuffix(baseURL, "/") + profileMarker + string(id)
}

// Reason classifies why a payload could not be resolved
type Reason string

const (
	ReasonNoMatch             Reason = "no_match"
	ReasonUnsupportedEncoding Reason = "unsupported_encoding"
)

var (
	ErrNoMatch             = errors.New("payload matches no known encoding")
	ErrUnsupportedEncoding = errors.New("payload encoding requires indirect lookup")
)

// ResolutionError is returned by Resolve for every failed payload.
// Encoding is the tag of the matcher that claimed the payload, empty when none did.
type ResolutionError struct {
	Reason   Reason
	Encoding Encoding
}

func (e *ResolutionError) Error() string {
	if e.Encoding == "" {
		return fmt.Sprintf("resolve identity: %s", e.Reason)
	}
	return fmt.Sprintf("resolve identity: %s (%s)", e.Reason, e.Encoding)
}

func (e *ResolutionError) Unwrap() error {
	if e.Reason == ReasonUnsupportedEncoding {
		return ErrUnsupportedEncoding
	}
	return ErrNoMatch
}

// ReasonOf extracts the failure reason from an error returned by Resolve
func ReasonOf(err error) (Reason, bool) {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
