package main

import (
	"github.com/sevigo/diff-scout/internal/core"
)

// Indicates that the review pipeline behind the console is ready.
type sessionReadyMsg struct {
	session *session
	err     error
}

// Indicates that a review run has finished, successfully or not.
type reviewDoneMsg struct {
	target string
	res    *core.ReviewResult
}

// A generic error message for reporting failures from commands.
type errorMsg struct{ err error }

func (e errorMsg) Error() string {
	return e.err.Error()
}
