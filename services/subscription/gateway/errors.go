package gateway

import (
	"errors"
	"fmt"
)

// Error marks a failure of a remote router call. The saga treats any error
// carrying this tag as critical.
type Error struct {
	Op     string
	Router string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway %s on %s: %v", e.Op, e.Router, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func IsGatewayError(err error) bool {
	var ge *Error
	return errors.As(err, &ge)
}
