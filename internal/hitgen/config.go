// Package hitgen drives concurrent traffic at a running proxy and checks that
// every request was counted exactly once.
package hitgen

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL  string        // Base URL of the proxy
	Keys     int           // Number of distinct image keys to generate
	Requests int           // Total number of image requests to send
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Enable per-request logging
}

// Stats holds run statistics.
type Stats struct {
	KeysGenerated int
	RequestsSent  int
	Served        int // 200
	NotFound      int // 404
	Rejected      int // 400
	Failed        int // transport errors and other statuses
	Mismatches    []Mismatch
	StartTime     time.Time
	EndTime       time.Time
	Duration      time.Duration
}

// Mismatch is a key whose count did not grow by the number of requests sent for it.
type Mismatch struct {
	Key      string
	Expected int64
	Got      int64
}
