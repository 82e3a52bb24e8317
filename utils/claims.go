package servoutils

import (
	"sync"

	"github.com/pkg/errors"
)

// ErrOutputInUse is returned when a pwm output is already owned by another servo.
var ErrOutputInUse = errors.New("pwm output already in use")

// outputClaims tracks the pwm outputs currently owned by a servo, keyed by
// whatever uniquely names the output on its host (board and pin).
type outputClaims struct {
	mu    sync.Mutex
	owned map[string]struct{}
}

var claims = &outputClaims{owned: map[string]struct{}{}}

// ClaimOutput marks the named output as owned. The returned release func
// gives it back and is safe to call more than once.
func ClaimOutput(key string) (func(), error) {
	claims.mu.Lock()
	defer claims.mu.Unlock()

	if _, ok := claims.owned[key]; ok {
		return nil, errors.Wrapf(ErrOutputInUse, "output %s", key)
	}
	claims.owned[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			claims.mu.Lock()
			defer claims.mu.Unlock()
			delete(claims.owned, key)
		})
	}, nil
}

// OutputClaimed returns whether the named output is currently owned.
func OutputClaimed(key string) bool {
	claims.mu.Lock()
	defer claims.mu.Unlock()
	_, ok := claims.owned[key]
	return ok
}
