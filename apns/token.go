package apns

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// The gateway accepts a provider token for up to an hour. Re-sign a
// little before that so an in-flight request never carries a stale one.
const tokenResetInterval = 55 * time.Minute

type providerToken struct {
	value    string
	issuedAt time.Time
}

// tokenStore caches the current provider token and re-signs lazily once
// the reset interval has passed or the token was invalidated. There is
// no background refresh; the next send pays for the signing.
type tokenStore struct {
	signer Signer
	teamID string
	keyID  string
	now    func() time.Time

	mu      sync.Mutex
	current *providerToken

	flight singleflight.Group
}

func newTokenStore(signer Signer, teamID, keyID string) *tokenStore {
	return &tokenStore{
		signer: signer,
		teamID: teamID,
		keyID:  keyID,
		now:    time.Now,
	}
}

// Token returns the cached provider token while it is fresh, signing a
// new one otherwise. Concurrent callers hitting an expired cache share
// a single signing call.
func (ts *tokenStore) Token() (string, error) {
	ts.mu.Lock()
	if cur := ts.current; cur != nil && ts.now().Sub(cur.issuedAt) < tokenResetInterval {
		value := cur.value
		ts.mu.Unlock()
		return value, nil
	}
	ts.mu.Unlock()

	value, err, _ := ts.flight.Do("provider-token", func() (interface{}, error) {
		issued := ts.now()
		claims := jwt.MapClaims{
			"iss": ts.teamID,
			"iat": issued.Unix(),
		}
		signed, err := ts.signer.Sign(claims, ts.keyID)
		if err != nil {
			return nil, err
		}
		ts.mu.Lock()
		ts.current = &providerToken{value: signed, issuedAt: issued}
		ts.mu.Unlock()
		return signed, nil
	})
	if err != nil {
		return "", err
	}
	return value.(string), nil
}

// Invalidate clears the cache so the next Token call re-signs no matter
// how fresh the cached token was.
func (ts *tokenStore) Invalidate() {
	ts.mu.Lock()
	ts.current = nil
	ts.mu.Unlock()
}
