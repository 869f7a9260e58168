package alarm

import "fmt"

// DecodeError is returned when the request body is not valid UTF-8.
type DecodeError struct {
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode request body: invalid UTF-8 at byte %d", e.Offset)
}

// ParseError is returned when the body is not well-formed XML.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse XML payload: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MalformedPayloadError names a required node the payload did not contain.
type MalformedPayloadError struct {
	Node string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed payload: missing <%s> element", e.Node)
}
