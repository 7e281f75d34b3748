package nonce

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"strconv"
	"time"
)

const DefaultLifetime = 24 * time.Hour

// tokenLen is the number of hex characters kept from the MAC.
const tokenLen = 20

var keyRandReader io.Reader = rand.Reader

// Manager issues and verifies anti-forgery tokens bound to an action and a
// user. A token stays valid for the tick it was issued in and the next one,
// so its lifetime is between half and the full configured lifetime.
type Manager struct {
	key      []byte
	lifetime time.Duration
	now      func() time.Time
}

// New returns a Manager. An empty key gets a random one, which makes
// outstanding tokens invalid after a restart.
func New(key []byte, lifetime time.Duration) (*Manager, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if lifetime < 2*time.Second {
		return nil, errors.New("nonce: lifetime too short")
	}
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := io.ReadFull(keyRandReader, key); err != nil {
			return nil, err
		}
	}
	return &Manager{key: append([]byte(nil), key...), lifetime: lifetime, now: time.Now}, nil
}

func (m *Manager) Create(action string, userID int64) string {
	return m.token(m.tick(), action, userID)
}

func (m *Manager) Verify(token string, action string, userID int64) bool {
	if len(token) != tokenLen {
		return false
	}
	t := m.tick()
	for _, tick := range []int64{t, t - 1} {
		if hmac.Equal([]byte(token), []byte(m.token(tick, action, userID))) {
			return true
		}
	}
	return false
}

func (m *Manager) tick() int64 {
	half := int64(m.lifetime / 2 / time.Second)
	return m.now().Unix() / half
}

func (m *Manager) token(tick int64, action string, userID int64) string {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(strconv.FormatInt(tick, 10)))
	mac.Write([]byte{'|'})
	mac.Write([]byte(action))
	mac.Write([]byte{'|'})
	mac.Write([]byte(strconv.FormatInt(userID, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:tokenLen]
}
