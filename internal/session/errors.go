package session

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid session transition")
	ErrStaleResponse     = errors.New("stale session response")
	ErrFederatedExchange = errors.New("federated session exchange failed")
)
