package hitgen

import "time"

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
	progressInterval        = time.Second
)

// Runner configuration constants.
const (
	percentageMultiplier = 100
	keyStemLength        = 4
)

// MaxKeys is the number of distinct keys GenerateKeys can produce: four hex
// characters per extension.
const MaxKeys = 1 << 17

// Request outcome labels.
const (
	outcomeServed   = "served"
	outcomeNotFound = "not_found"
	outcomeRejected = "rejected"
	outcomeFailed   = "failed"
)
