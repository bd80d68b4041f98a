// Package cms builds detached CMS SignedData over a precomputed message
// digest, as needed for PDF signatures whose byte ranges are hashed by the
// native engine.
package cms

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	_ "crypto/sha512" // registers SHA-384/512 for crypto.Hash
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"errors"
	"fmt"
	"time"
)

// ErrDigestLength indicates a digest whose length matches no supported
// hash algorithm.
var ErrDigestLength = errors.New("unsupported digest length")

// SignerConfig contains options for signing.
type SignerConfig struct {
	Certificate *x509.Certificate
	Chain       []*x509.Certificate // intermediates, embedded after Certificate
	Signer      crypto.Signer
	DigestAlg   crypto.Hash // inferred from the digest length when zero
	SigningTime time.Time
}

// DigestAlgForLength maps a digest length to its SHA-2 algorithm.
func DigestAlgForLength(n int) (crypto.Hash, error) {
	switch n {
	case 32:
		return crypto.SHA256, nil
	case 48:
		return crypto.SHA384, nil
	case 64:
		return crypto.SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %d bytes", ErrDigestLength, n)
	}
}

// SignDigest creates a detached CMS SignedData whose message-digest
// attribute is digest. The content itself is never seen.
func SignDigest(ctx context.Context, digest []byte, config *SignerConfig) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if config.Certificate == nil {
		return nil, fmt.Errorf("certificate is required")
	}
	if config.Signer == nil {
		return nil, fmt.Errorf("signer is required")
	}

	digestAlg := config.DigestAlg
	if digestAlg == 0 {
		alg, err := DigestAlgForLength(len(digest))
		if err != nil {
			return nil, err
		}
		digestAlg = alg
	}
	if digestAlg.Size() != len(digest) {
		return nil, fmt.Errorf("%w: %d bytes for %v", ErrDigestLength, len(digest), digestAlg)
	}
	signingTime := config.SigningTime
	if signingTime.IsZero() {
		signingTime = time.Now().UTC()
	}

	signedAttrs, err := buildSignedAttrs(digest, signingTime, config.Certificate)
	if err != nil {
		return nil, fmt.Errorf("failed to build signed attributes: %w", err)
	}

	signedAttrsDER, err := MarshalSignedAttrs(signedAttrs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal signed attributes: %w", err)
	}

	signature, err := signData(signedAttrsDER, config.Signer, digestAlg)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}

	digestAlgID := getDigestAlgorithmIdentifier(digestAlg)
	sigAlgID, err := getSignatureAlgorithmIdentifier(config.Signer, digestAlg)
	if err != nil {
		return nil, fmt.Errorf("failed to get signature algorithm: %w", err)
	}

	signerInfo := SignerInfo{
		Version: 1,
		SID: SignerIdentifier{
			IssuerAndSerialNumber: IssuerAndSerialNumber{
				Issuer:       asn1.RawValue{FullBytes: config.Certificate.RawIssuer},
				SerialNumber: config.Certificate.SerialNumber,
			},
		},
		DigestAlgorithm:    digestAlgID,
		SignedAttrs:        signedAttrs,
		SignatureAlgorithm: sigAlgID,
		Signature:          signature,
	}

	certs := append([]byte(nil), config.Certificate.Raw...)
	for _, c := range config.Chain {
		certs = append(certs, c.Raw...)
	}

	signedData := SignedData{
		Version:          1,
		DigestAlgorithms: []pkix.AlgorithmIdentifier{digestAlgID},
		EncapContentInfo: EncapsulatedContentInfo{EContentType: OIDData},
		Certificates:     certificateSet(certs),
		SignerInfos:      []SignerInfo{signerInfo},
	}

	signedDataDER, err := asn1.Marshal(signedData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal SignedData: %w", err)
	}

	contentInfo := ContentInfo{
		ContentType: OIDSignedData,
		Content:     asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: signedDataDER},
	}
	return asn1.Marshal(contentInfo)
}

// certificateSet wraps concatenated DER certificates as the IMPLICIT [0]
// CertificateSet. The tag lives in the RawValue because asn1.Marshal
// ignores field tags on RawValue.
func certificateSet(der []byte) asn1.RawValue {
	return asn1.RawValue{Class: asn1.ClassContextSpecific, Tag: 0, IsCompound: true, Bytes: der}
}

func buildSignedAttrs(digest []byte, signingTime time.Time, cert *x509.Certificate) ([]Attribute, error) {
	ctAttr, err := NewContentTypeAttr(OIDData)
	if err != nil {
		return nil, err
	}
	mdAttr, err := NewMessageDigestAttr(digest)
	if err != nil {
		return nil, err
	}
	stAttr, err := NewSigningTimeAttr(signingTime)
	if err != nil {
		return nil, err
	}
	scAttr, err := NewSigningCertificateV2Attr(cert)
	if err != nil {
		return nil, err
	}

	attrs := []Attribute{ctAttr, mdAttr, stAttr, scAttr}
	if err := sortAttributes(attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

func hashData(data []byte, alg crypto.Hash) ([]byte, error) {
	if !alg.Available() {
		return nil, fmt.Errorf("unsupported digest algorithm: %v", alg)
	}
	h := alg.New()
	h.Write(data)
	return h.Sum(nil), nil
}

func signData(data []byte, signer crypto.Signer, digestAlg crypto.Hash) ([]byte, error) {
	// Ed25519 signs the attributes directly
	if _, ok := signer.Public().(ed25519.PublicKey); ok {
		return signer.Sign(rand.Reader, data, crypto.Hash(0))
	}
	digest, err := hashData(data, digestAlg)
	if err != nil {
		return nil, err
	}
	return signer.Sign(rand.Reader, digest, digestAlg)
}

func getDigestAlgorithmIdentifier(alg crypto.Hash) pkix.AlgorithmIdentifier {
	switch alg {
	case crypto.SHA384:
		return pkix.AlgorithmIdentifier{Algorithm: OIDSHA384}
	case crypto.SHA512:
		return pkix.AlgorithmIdentifier{Algorithm: OIDSHA512}
	default:
		return pkix.AlgorithmIdentifier{Algorithm: OIDSHA256}
	}
}

func getSignatureAlgorithmIdentifier(signer crypto.Signer, digestAlg crypto.Hash) (pkix.AlgorithmIdentifier, error) {
	switch signer.Public().(type) {
	case *ecdsa.PublicKey:
		switch digestAlg {
		case crypto.SHA256:
			return pkix.AlgorithmIdentifier{Algorithm: OIDECDSAWithSHA256}, nil
		case crypto.SHA384:
			return pkix.AlgorithmIdentifier{Algorithm: OIDECDSAWithSHA384}, nil
		case crypto.SHA512:
			return pkix.AlgorithmIdentifier{Algorithm: OIDECDSAWithSHA512}, nil
		}
	case ed25519.PublicKey:
		return pkix.AlgorithmIdentifier{Algorithm: OIDEd25519}, nil
	case *rsa.PublicKey:
		switch digestAlg {
		case crypto.SHA256:
			return pkix.AlgorithmIdentifier{Algorithm: OIDSHA256WithRSA, Parameters: asn1.NullRawValue}, nil
		case crypto.SHA384:
			return pkix.AlgorithmIdentifier{Algorithm: OIDSHA384WithRSA, Parameters: asn1.NullRawValue}, nil
		case crypto.SHA512:
			return pkix.AlgorithmIdentifier{Algorithm: OIDSHA512WithRSA, Parameters: asn1.NullRawValue}, nil
		}
	default:
		return pkix.AlgorithmIdentifier{}, fmt.Errorf("unsupported public key type: %T", signer.Public())
	}
	return pkix.AlgorithmIdentifier{}, fmt.Errorf("unsupported digest %v for %T", digestAlg, signer.Public())
}
