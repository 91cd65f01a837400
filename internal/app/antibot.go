package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/neomorfeo/adoptiq/internal/domain"
)

const (
	tokenNamespace = "adoptiq-form"
	tokenLength    = 32

	tokenMaxAge  = 10 * time.Minute
	tokenMaxSkew = 10 * time.Second
)

// Anti-bot rejection reasons. They are logged, never returned to the public.
const (
	reasonHoneypot     = "invalid submission"
	reasonMissingToken = "missing security token"
	reasonBadToken     = "invalid or expired security token"
)

// SecurityToken is handed to a form and echoed back on submit.
type SecurityToken struct {
	Value     string `json:"token"`
	Timestamp int64  `json:"timestamp"`
}

// Submission carries the anti-bot fields of a public form post.
type Submission struct {
	Honeypot  string
	Token     string
	Timestamp int64
}

// AntiBot issues and checks HMAC-bound form tokens. It holds no state
// besides the secret.
type AntiBot struct {
	secret []byte
	nowFn  func() time.Time
}

// NewAntiBot creates a validator keyed by secret.
func NewAntiBot(secret []byte) *AntiBot {
	return &AntiBot{secret: secret, nowFn: time.Now}
}

// WithClock replaces the validator's time source.
func (a *AntiBot) WithClock(now func() time.Time) *AntiBot {
	a.nowFn = now
	return a
}

// Issue returns a token bound to the current time in milliseconds.
func (a *AntiBot) Issue() SecurityToken {
	ts := a.nowFn().UnixMilli()
	return SecurityToken{Value: a.sign(ts), Timestamp: ts}
}

// Validate returns a *domain.AntiBotError for the first failing rule.
func (a *AntiBot) Validate(s Submission) error {
	if s.Honeypot != "" {
		return &domain.AntiBotError{Reason: reasonHoneypot}
	}
	if s.Token == "" || s.Timestamp == 0 {
		return &domain.AntiBotError{Reason: reasonMissingToken}
	}

	expected := a.sign(s.Timestamp)
	if subtle.ConstantTimeCompare([]byte(s.Token), []byte(expected)) != 1 {
		return &domain.AntiBotError{Reason: reasonBadToken}
	}

	now := a.nowFn()
	issued := time.UnixMilli(s.Timestamp)
	if issued.Before(now.Add(-tokenMaxAge)) || issued.After(now.Add(tokenMaxSkew)) {
		return &domain.AntiBotError{Reason: reasonBadToken}
	}

	return nil
}

func (a *AntiBot) sign(ts int64) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write([]byte(tokenNamespace + ":" + strconv.FormatInt(ts, 10)))
	return hex.EncodeToString(mac.Sum(nil))[:tokenLength]
}
