package apns

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var errTestSigning = errors.New("signing backend unavailable")

// fakeSigner implements Signer for testing and counts signing calls.
type fakeSigner struct {
	mu         sync.Mutex
	calls      int
	err        error
	delay      time.Duration
	lastClaims jwt.MapClaims
	lastKeyID  string
}

func (f *fakeSigner) Sign(claims jwt.MapClaims, keyID string) (string, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.calls++
	f.lastClaims = claims
	f.lastKeyID = keyID
	return fmt.Sprintf("signed-token-%d", f.calls), nil
}

func (f *fakeSigner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
