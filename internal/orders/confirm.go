package orders

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"storefront/internal/apperr"
)

// Confirmer checks the secondary secret required by destructive actions.
type Confirmer interface {
	Confirm(action, secret string) error
}

// SecretConfirmer compares secrets against a bcrypt hash.
type SecretConfirmer struct {
	hash []byte
}

// NewSecretConfirmer accepts either a bcrypt hash or a plain secret, which is
// hashed once here.
func NewSecretConfirmer(secret string) (*SecretConfirmer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("confirmation secret is empty")
	}
	if _, err := bcrypt.Cost([]byte(secret)); err == nil {
		return &SecretConfirmer{hash: []byte(secret)}, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &SecretConfirmer{hash: hash}, nil
}

func (c *SecretConfirmer) Confirm(action, secret string) error {
	if secret == "" || bcrypt.CompareHashAndPassword(c.hash, []byte(secret)) != nil {
		return &apperr.AuthorizationError{Action: action}
	}
	return nil
}
