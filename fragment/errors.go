package fragment

import "fmt"

// InvalidFrameTypeError is returned when New is asked to split a
// frame whose type cannot legally be fragmented. Reaching this path is a
// programmer error in the caller.
type InvalidFrameTypeError struct {
	Type fmt.Stringer
}

func (e *InvalidFrameTypeError) Error() string {
	return fmt.Sprintf("invalid frame type for fragmentation: %s", e.Type)
}
