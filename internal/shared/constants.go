package shared

import "time"

// HTTP Client Configuration
const (
	DefaultUpstreamTimeout = 30 * time.Second
	DefaultShutdownTimeout = 10 * time.Second
)

// Retry Configuration
const (
	DefaultRetryAttempts = 1
	DefaultRetryBackoff  = 500 * time.Millisecond
	MaxRetryBackoff      = 30 * time.Second
	RetryBackoffFactor   = 2.0
)

// API Configuration
const (
	DefaultAPIVersion = "2024-02-15-preview"
	DefaultMaxTokens  = 512
	DefaultListenAddr = ":8000"
)

// Protocol Configuration
const (
	ProtocolVersion = "2024-11-05"
	ServerName      = "agent-gateway"
	ServerVersion   = "1.0.0"
)

// RequestIDAlphabet is used for nanoid request and ticket ids.
const (
	RequestIDAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	RequestIDLength   = 28
	TicketIDLength    = 12
)
