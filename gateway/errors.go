package gateway

import "errors"

var (
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrEmptyMessage          = errors.New("empty message")
	ErrInvalidChainId        = errors.New("invalid chain id") //nolint:stylecheck
	ErrInvalidMint           = errors.New("invalid mint")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrMessageDecodingFailed = errors.New("message decoding failed")

	ErrConfigExists      = errors.New("config already exists")
	ErrConfigNotFound    = errors.New("config not found")
	ErrInvalidDerivation = errors.New("config derivation tag mismatch")
	ErrCustodyUnderflow  = errors.New("custody balance underflow")
)
