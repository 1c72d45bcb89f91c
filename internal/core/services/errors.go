package services

import "errors"

// Auth errors
var (
	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenWrongKind = errors.New("auth: token subject kind not allowed here")
)

// Account errors
var (
	ErrAccountNotFound = errors.New("account: not found")
)

// Agent errors
var (
	ErrAgentNotFound     = errors.New("agent: not found")
	ErrAgentInvalidInput = errors.New("agent: invalid input")
)

// Task errors
var (
	ErrTaskNotFound       = errors.New("task: not found")
	ErrTaskInvalidInput   = errors.New("task: invalid input")
	ErrTaskNotCancellable = errors.New("task: already in a terminal state")
)

// Credential errors
var (
	ErrCredentialNotFound     = errors.New("credential: not found")
	ErrCredentialInvalidInput = errors.New("credential: invalid input")
)

// Link errors
var (
	ErrLinkNotFound = errors.New("link: not found")
)
