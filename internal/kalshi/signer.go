package kalshi

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Signer produces Kalshi authentication headers by RSA-PSS signing a
// canonical message. It holds no per-request state; the key is loaded
// once at construction.
type Signer struct {
	accessKeyID string
	privateKey  *rsa.PrivateKey
}

// NewSigner loads the PEM private key at keyPath and returns a ready
// signer. A load failure is fatal to startup and is never retried.
func NewSigner(accessKeyID, keyPath string) (*Signer, error) {
	key, err := loadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}
	return &Signer{
		accessKeyID: accessKeyID,
		privateKey:  key,
	}, nil
}

// Headers returns the authentication header set for one outbound call.
// The signature covers timestampMillis + METHOD + path with the query
// string stripped, concatenated without separators.
func (s *Signer) Headers(method, path string, now time.Time) (map[string]string, error) {
	if s.privateKey == nil {
		return nil, ErrNoPrivateKey
	}

	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	pathWithoutQuery, _, _ := strings.Cut(path, "?")
	message := timestamp + strings.ToUpper(method) + pathWithoutQuery

	signature, err := s.signPSS(message)
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"KALSHI-ACCESS-KEY":       s.accessKeyID,
		"KALSHI-ACCESS-SIGNATURE": signature,
		"KALSHI-ACCESS-TIMESTAMP": timestamp,
		"Content-Type":            "application/json",
	}, nil
}

// signPSS signs the message with RSA-PSS (salt length = digest length)
// over SHA-256 and returns the base64 signature.
func (s *Signer) signPSS(message string) (string, error) {
	digest := sha256.Sum256([]byte(message))

	signature, err := rsa.SignPSS(rand.Reader, s.privateKey, crypto.SHA256, digest[:], &rsa.PSSOptions{
		SaltLength: rsa.PSSSaltLengthEqualsHash,
		Hash:       crypto.SHA256,
	})
	if err != nil {
		return "", fmt.Errorf("kalshi: sign request: %w", err)
	}

	return base64.StdEncoding.EncodeToString(signature), nil
}

// loadPrivateKey reads an RSA private key from a PEM file. Both PKCS#1
// and PKCS#8 encodings are accepted.
func loadPrivateKey(path string) (*rsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &KeyLoadError{Path: path, Err: err}
	}

	block, _ := pem.Decode(data)
	if block == nil {
		return nil, &KeyLoadError{Path: path, Err: fmt.Errorf("no PEM block found")}
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, &KeyLoadError{Path: path, Err: err}
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, &KeyLoadError{Path: path, Err: fmt.Errorf("not an RSA private key: %T", parsed)}
	}
	return rsaKey, nil
}
