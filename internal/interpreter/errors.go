package interpreter

import (
	mdwerror "github.com/msto63/dolmetscher/pkg/core/error"
)

var (
	// ErrAlreadyRunning is returned by Start while an instance is active
	ErrAlreadyRunning = mdwerror.New("pipeline already running").
		WithCode(mdwerror.CodeInvalidState)

	// ErrTerminated is returned by Start on a stopped or failed instance
	ErrTerminated = mdwerror.New("pipeline terminated, create a new instance").
		WithCode(mdwerror.CodeInvalidState)

	// ErrStopTimeout is returned by Stop when the loop did not finish
	// within the grace period
	ErrStopTimeout = mdwerror.New("pipeline did not stop within grace period").
		WithCode(mdwerror.CodeTimeout)
)
