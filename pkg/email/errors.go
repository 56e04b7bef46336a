package email

import "fmt"

type ErrDisabled struct{}

func (ErrDisabled) Error() string { return "email: sending is disabled" }

type ErrInvalidMessage struct {
	Reason string
}

func (e ErrInvalidMessage) Error() string { return "email: invalid message: " + e.Reason }

type ErrSend struct {
	Provider string
	Err      error
}

func (e ErrSend) Error() string { return fmt.Sprintf("email: send via %s: %v", e.Provider, e.Err) }

func (e ErrSend) Unwrap() error { return e.Err }
