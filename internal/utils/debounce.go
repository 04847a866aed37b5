package utils

import "time"

// StreamMaxLen caps each per-device Redis stream of raw state reports
const StreamMaxLen = 100

// DebounceWindow is how long state reports are buffered before the latest one is processed
const DebounceWindow = 500 * time.Millisecond
