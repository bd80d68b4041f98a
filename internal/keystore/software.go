// Package keystore loads signing keys and certificates for local signing,
// either from PEM files or from a PKCS#11 token.
package keystore

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
)

// ErrNoCertificate indicates a PEM file without any certificate.
var ErrNoCertificate = errors.New("no certificate found")

// ErrKeyMismatch indicates the private key does not match the certificate.
var ErrKeyMismatch = errors.New("key does not match certificate")

// Credential is a signing key with its certificate chain.
type Credential struct {
	Signer      crypto.Signer
	Certificate *x509.Certificate
	Chain       []*x509.Certificate
	closer      func() error
}

// Close releases resources held by the key (HSM sessions).
func (c *Credential) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer()
}

// LoadCertificates reads every CERTIFICATE block of a PEM file. The
// first one is the signer certificate; the rest form its chain.
func LoadCertificates(path string) (*x509.Certificate, []*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	var certs []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse certificate: %w", err)
		}
		certs = append(certs, cert)
	}
	if len(certs) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoCertificate, path)
	}
	return certs[0], certs[1:], nil
}

// LoadPrivateKey reads a PKCS#8, PKCS#1 or SEC1 PEM private key.
func LoadPrivateKey(path string) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no private key found in %s", path)
		}
		switch block.Type {
		case "PRIVATE KEY":
			key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse PKCS#8 key: %w", err)
			}
			signer, ok := key.(crypto.Signer)
			if !ok {
				return nil, fmt.Errorf("unsupported key type %T", key)
			}
			return signer, nil
		case "RSA PRIVATE KEY":
			key, err := x509.ParsePKCS1PrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse PKCS#1 key: %w", err)
			}
			return key, nil
		case "EC PRIVATE KEY":
			key, err := x509.ParseECPrivateKey(block.Bytes)
			if err != nil {
				return nil, fmt.Errorf("failed to parse EC key: %w", err)
			}
			return key, nil
		case "ENCRYPTED PRIVATE KEY":
			return nil, fmt.Errorf("encrypted private keys are not supported, use a PKCS#11 token")
		}
	}
}

// LoadSoftware loads a PEM certificate chain and its private key.
func LoadSoftware(certPath, keyPath string) (*Credential, error) {
	cert, chain, err := LoadCertificates(certPath)
	if err != nil {
		return nil, err
	}
	key, err := LoadPrivateKey(keyPath)
	if err != nil {
		return nil, err
	}
	if !publicKeysEqual(key.Public(), cert.PublicKey) {
		return nil, ErrKeyMismatch
	}
	return &Credential{Signer: key, Certificate: cert, Chain: chain}, nil
}

func publicKeysEqual(a, b crypto.PublicKey) bool {
	switch pa := a.(type) {
	case *ecdsa.PublicKey:
		return pa.Equal(b)
	case *rsa.PublicKey:
		return pa.Equal(b)
	case ed25519.PublicKey:
		return pa.Equal(b)
	default:
		return false
	}
}
