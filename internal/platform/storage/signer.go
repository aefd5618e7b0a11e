package storage

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Signer produces the GoogleAccessID and signature needed to issue
// signed asset URLs.
type Signer interface {
	Email() string
	SignBytes(ctx context.Context, payload []byte) ([]byte, error)
}

// ServiceAccountSigner signs URL payloads with a service account's RSA key.
type ServiceAccountSigner struct {
	email string
	key   *rsa.PrivateKey
}

// NewServiceAccountSignerFromFile loads a service account JSON key from disk.
func NewServiceAccountSignerFromFile(path string) (*ServiceAccountSigner, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("storage: read service account key: %w", err)
	}
	return NewServiceAccountSignerFromJSON(raw)
}

// NewServiceAccountSignerFromJSON builds a signer from service account
// JSON key material.
func NewServiceAccountSignerFromJSON(raw []byte) (*ServiceAccountSigner, error) {
	email, key, err := decodeServiceAccountKey(raw)
	if err != nil {
		return nil, err
	}
	return &ServiceAccountSigner{email: email, key: key}, nil
}

// Email returns the service account address used as the GoogleAccessID.
func (s *ServiceAccountSigner) Email() string {
	if s == nil {
		return ""
	}
	return s.email
}

// SignBytes signs the payload with RSA-SHA256, the scheme GCS expects
// for V4 signed URLs.
func (s *ServiceAccountSigner) SignBytes(ctx context.Context, payload []byte) ([]byte, error) {
	if s == nil || s.key == nil {
		return nil, errors.New("storage: signer not initialised")
	}
	if len(payload) == 0 {
		return nil, errors.New("storage: nothing to sign")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	digest := sha256.Sum256(payload)
	signature, err := rsa.SignPKCS1v15(rand.Reader, s.key, crypto.SHA256, digest[:])
	if err != nil {
		return nil, fmt.Errorf("storage: sign payload: %w", err)
	}
	return signature, nil
}

func decodeServiceAccountKey(raw []byte) (string, *rsa.PrivateKey, error) {
	if len(raw) == 0 {
		return "", nil, errors.New("storage: service account key is empty")
	}

	var material struct {
		ClientEmail string `json:"client_email"`
		PrivateKey  string `json:"private_key"`
	}
	if err := json.Unmarshal(raw, &material); err != nil {
		return "", nil, fmt.Errorf("storage: decode service account key: %w", err)
	}

	email := strings.TrimSpace(material.ClientEmail)
	if email == "" {
		return "", nil, errors.New("storage: service account key has no client_email")
	}

	block, _ := pem.Decode([]byte(strings.TrimSpace(material.PrivateKey)))
	if block == nil {
		return "", nil, errors.New("storage: service account key has no PEM private key")
	}

	// Service account keys ship PKCS#8; accept PKCS#1 for keys converted
	// by hand.
	if parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes); err == nil {
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return "", nil, errors.New("storage: private key is not RSA")
		}
		return email, key, nil
	}
	key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
	if err != nil {
		return "", nil, fmt.Errorf("storage: parse private key: %w", err)
	}
	return email, key, nil
}
