package predictor

import "errors"

var (
	ErrTransport = errors.New("predictor: transport failure")
	ErrProtocol  = errors.New("predictor: protocol violation")
	ErrClosed    = errors.New("predictor: connector closed")
)
