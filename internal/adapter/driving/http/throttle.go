package httphandler

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	maxFailedPINAttempts = 5
	pinLockout           = 30 * time.Second
	maxPINLockout        = 15 * time.Minute
)

// pinThrottle counts consecutive failed PIN checks. Every
// maxFailedPINAttempts-th failure locks PIN endpoints for a window that
// doubles with each lockout, up to maxPINLockout. A correct PIN clears it.
// The vault holds one PIN, so the counter is global rather than per client.
type pinThrottle struct {
	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
	now         func() time.Time
}

func newPINThrottle() *pinThrottle {
	return &pinThrottle{now: time.Now}
}

// retryAfter returns how long PIN checks stay locked; zero means allowed.
func (t *pinThrottle) retryAfter() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return max(t.lockedUntil.Sub(t.now()), 0)
}

func (t *pinThrottle) fail() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.failures++
	if t.failures%maxFailedPINAttempts != 0 {
		return
	}
	shift := min(t.failures/maxFailedPINAttempts-1, 10)
	t.lockedUntil = t.now().Add(min(pinLockout<<shift, maxPINLockout))
}

func (t *pinThrottle) succeed() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures = 0
	t.lockedUntil = time.Time{}
}

// rejectIfLocked writes 429 with Retry-After and reports true while PIN
// checks are locked.
func (h *Handler) rejectIfLocked(w http.ResponseWriter) bool {
	wait := h.pins.retryAfter()
	if wait <= 0 {
		return false
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
	writeError(w, http.StatusTooManyRequests, "too many incorrect PIN attempts; try again later")
	return true
}
