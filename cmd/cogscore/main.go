package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess = 0 // Response written
	ExitInput   = 1 // Malformed request payload
	ExitError   = 2 // Configuration or runtime error
)

// InputError marks a request payload that could not be parsed. An error-tagged response has
// already been written when it is returned.
type InputError struct {
	Err error
}

func (e *InputError) Error() string { return e.Err.Error() }

func (e *InputError) Unwrap() error { return e.Err }

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var inputErr *InputError
		if errors.As(err, &inputErr) {
			os.Exit(ExitInput)
		}
		os.Exit(ExitError)
	}
}
