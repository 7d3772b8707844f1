package store

import (
	"errors"
	"math/rand"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// retryConfig controls how long a write keeps retrying under contention.
// Several priosim processes may record into the same database at once, and
// WAL mode still surfaces BUSY, LOCKED and short-read errors that the
// busy_timeout pragma does not absorb.
type retryConfig struct {
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleep      func(time.Duration)
}

var defaultRetryConfig = retryConfig{
	maxRetries: 3,
	baseDelay:  50 * time.Millisecond,
	maxDelay:   500 * time.Millisecond,
	sleep:      time.Sleep,
}

// retryOnContention runs fn under defaultRetryConfig.
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

// transientCodes are the primary SQLite result codes worth retrying.
var transientCodes = map[int]bool{
	sqlite3.SQLITE_BUSY:   true,
	sqlite3.SQLITE_LOCKED: true,
}

// isTransientSQLiteErr reports whether err is a contention error. Driver
// errors are classified by result code; anything else falls back to the
// message text, since callers wrap driver errors with fmt.Errorf.
func isTransientSQLiteErr(err error) bool {
	if err == nil {
		return false
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		code := se.Code()
		if code == sqlite3.SQLITE_IOERR_SHORT_READ {
			return true
		}
		return transientCodes[code&0xff]
	}
	msg := err.Error()
	for _, pattern := range []string{
		"SQLITE_BUSY",
		"SQLITE_LOCKED",
		"IOERR_SHORT_READ",
		"database is locked",
		"database table is locked",
		"(5)",
		"(6)",
		"(522)",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// retryOp calls fn until it succeeds, fails permanently, or the retries
// run out. The last error is returned.
func retryOp(cfg retryConfig, fn func() error) error {
	sleep := cfg.sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil || !isTransientSQLiteErr(err) {
			return err
		}
		if attempt >= cfg.maxRetries {
			return err
		}
		sleep(backoffDelay(cfg, attempt))
	}
}

// backoffDelay is baseDelay * 2^attempt, capped at maxDelay, plus jitter
// in [0, baseDelay).
func backoffDelay(cfg retryConfig, attempt int) time.Duration {
	delay := cfg.baseDelay << uint(attempt)
	if delay > cfg.maxDelay || delay <= 0 {
		delay = cfg.maxDelay
	}
	if cfg.baseDelay <= 0 {
		return delay
	}
	return delay + time.Duration(rand.Int63n(int64(cfg.baseDelay)))
}
