package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	// Counter for sequential IDs
	idCounter uint64
)

// GenerateID generates a unique process-local ID
func GenerateID() string {
	count := atomic.AddUint64(&idCounter, 1)
	timestamp := time.Now().UnixNano()
	return fmt.Sprintf("%x-%x", timestamp, count)
}

// GenerateRequestID generates a request ID (8 bytes hex-encoded)
func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return GenerateID()
	}
	return hex.EncodeToString(b)
}

// GenerateSolveID generates a solve ID with a timestamp prefix,
// e.g. solve-20261019-151602-9f3a01bc
func GenerateSolveID() string {
	timestamp := time.Now().UTC().Format("20060102-150405")
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		count := atomic.AddUint64(&idCounter, 1)
		return fmt.Sprintf("solve-%s-%x", timestamp, count)
	}
	return fmt.Sprintf("solve-%s-%s", timestamp, hex.EncodeToString(b))
}
