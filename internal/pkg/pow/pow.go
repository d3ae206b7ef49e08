/*
Package pow implements the proof-of-work challenge that guards account signup.

A client fetches a nonce, searches for a counter such that sha256(nonce+counter) has
the configured number of leading hex zeros, and trades the solution for a short-lived
proof token that the signup endpoint consumes.
*/
package pow

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lobbychat/internal/pkg/errs"
	"lobbychat/internal/pkg/resp"
)

const (
	// TokenHeaderKey carries the proof token on guarded requests.
	TokenHeaderKey = "X-PoW-Token"

	// ProofTokenDuration is how long an issued proof token stays valid.
	ProofTokenDuration = 60 * time.Second

	// NonceExpiryDuration is how long a challenge nonce may be solved.
	NonceExpiryDuration = 5 * time.Minute
)

var (
	ErrNonceUnknown  = errors.New("nonce expired or unknown")
	ErrProofTooWeak  = errors.New("proof does not meet difficulty")
	ErrNonceConsumed = errors.New("nonce already used")
)

// Challenge is returned to clients requesting a nonce.
type Challenge struct {
	Nonce      string `json:"nonce"`
	Difficulty int    `json:"difficulty"`
	ExpiresAt  int64  `json:"expiresAt"`
}

// Manager tracks outstanding nonces and issued proof tokens.
type Manager struct {
	difficulty int

	mu     sync.Mutex
	nonces map[string]time.Time
	tokens map[string]time.Time

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

// NewManager creates a Manager for the given difficulty and starts its expiry sweep.
func NewManager(difficulty int) *Manager {
	m := &Manager{
		difficulty: difficulty,
		nonces:     make(map[string]time.Time),
		tokens:     make(map[string]time.Time),
		now:        time.Now,
		stop:       make(chan struct{}),
	}

	go m.sweep()

	return m
}

// Difficulty returns the required number of leading hex zeros.
func (m *Manager) Difficulty() int {
	return m.difficulty
}

// NewChallenge issues a fresh nonce.
func (m *Manager) NewChallenge() Challenge {
	m.mu.Lock()
	defer m.mu.Unlock()

	nonce := uuid.NewString()
	expires := m.now().Add(NonceExpiryDuration)
	m.nonces[nonce] = expires

	return Challenge{Nonce: nonce, Difficulty: m.difficulty, ExpiresAt: expires.Unix()}
}

// Verify checks counter against nonce and, on success, consumes the nonce and
// returns a proof token.
func (m *Manager) Verify(nonce, counter string) (string, error) {
	if !Satisfies(nonce, counter, m.difficulty) {
		return "", ErrProofTooWeak
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.nonces[nonce]
	if !ok {
		return "", ErrNonceConsumed
	}
	delete(m.nonces, nonce)

	if m.now().After(expiry) {
		return "", ErrNonceUnknown
	}

	token := uuid.NewString()
	m.tokens[token] = m.now().Add(ProofTokenDuration)
	return token, nil
}

// Consume validates and invalidates the proof token carried by r.
func (m *Manager) Consume(r *http.Request) bool {
	token := r.Header.Get(TokenHeaderKey)
	if token == "" {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	expiry, ok := m.tokens[token]
	if !ok {
		return false
	}
	delete(m.tokens, token)

	return !m.now().After(expiry)
}

// Require is middleware that rejects requests without a valid proof token.
func (m *Manager) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.difficulty > 0 && !m.Consume(r) {
			resp.RespondError(w, r, errs.NewError(errs.ErrPowChallengeRequired))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Close stops the expiry sweep.
func (m *Manager) Close() {
	m.once.Do(func() { close(m.stop) })
}

// Satisfies reports whether sha256(nonce+counter) starts with difficulty hex zeros.
func Satisfies(nonce, counter string, difficulty int) bool {
	sum := sha256.Sum256([]byte(nonce + counter))
	return strings.HasPrefix(hex.EncodeToString(sum[:]), strings.Repeat("0", difficulty))
}

func (m *Manager) sweep() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := m.now()
			for k, exp := range m.nonces {
				if now.After(exp) {
					delete(m.nonces, k)
				}
			}
			for k, exp := range m.tokens {
				if now.After(exp) {
					delete(m.tokens, k)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}
