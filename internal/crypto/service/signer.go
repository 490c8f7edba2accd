package service

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	apperrors "github.com/usphq/usp/internal/errors"
)

// GenerateKeyPair generates a fresh key pair for the given signing algorithm.
// The private key is returned as PKCS#8 DER and the public key as PKIX DER, so
// both sides round-trip through storage as opaque byte columns.
func GenerateKeyPair(alg cryptoDomain.SigningAlgorithm) (privateKey, publicKey []byte, err error) {
	var priv crypto.Signer

	switch alg {
	case cryptoDomain.SignEd25519:
		_, key, genErr := ed25519.GenerateKey(rand.Reader)
		if genErr != nil {
			return nil, nil, apperrors.Wrap(genErr, "failed to generate ed25519 key")
		}
		priv = key
	case cryptoDomain.SignRSA2048:
		key, genErr := rsa.GenerateKey(rand.Reader, 2048)
		if genErr != nil {
			return nil, nil, apperrors.Wrap(genErr, "failed to generate rsa-2048 key")
		}
		priv = key
	case cryptoDomain.SignRSA4096:
		key, genErr := rsa.GenerateKey(rand.Reader, 4096)
		if genErr != nil {
			return nil, nil, apperrors.Wrap(genErr, "failed to generate rsa-4096 key")
		}
		priv = key
	case cryptoDomain.SignECDSAP256:
		key, genErr := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if genErr != nil {
			return nil, nil, apperrors.Wrap(genErr, "failed to generate ecdsa-p256 key")
		}
		priv = key
	default:
		return nil, nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	privateKey, err = x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal private key")
	}
	publicKey, err = x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to marshal public key")
	}
	return privateKey, publicKey, nil
}

// Sign signs message with a PKCS#8-encoded private key. RSA keys sign a
// SHA-256 digest with PSS padding, ECDSA keys sign a SHA-256 digest with an
// ASN.1 signature, and Ed25519 signs the message directly.
func Sign(alg cryptoDomain.SigningAlgorithm, privateKey, message []byte) ([]byte, error) {
	parsed, err := x509.ParsePKCS8PrivateKey(privateKey)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse private key")
	}

	switch alg {
	case cryptoDomain.SignEd25519:
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, cryptoDomain.ErrUnsupportedAlgorithm
		}
		return ed25519.Sign(key, message), nil
	case cryptoDomain.SignRSA2048, cryptoDomain.SignRSA4096:
		key, ok := parsed.(*rsa.PrivateKey)
		if !ok {
			return nil, cryptoDomain.ErrUnsupportedAlgorithm
		}
		digest := sha256.Sum256(message)
		sig, err := rsa.SignPSS(rand.Reader, key, crypto.SHA256, digest[:], nil)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to sign message")
		}
		return sig, nil
	case cryptoDomain.SignECDSAP256:
		key, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, cryptoDomain.ErrUnsupportedAlgorithm
		}
		digest := sha256.Sum256(message)
		sig, err := ecdsa.SignASN1(rand.Reader, key, digest[:])
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to sign message")
		}
		return sig, nil
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}

// Verify reports whether sig is a valid signature over message for the
// PKIX-encoded public key. An invalid signature is a false result, not an
// error; errors are reserved for malformed keys and unsupported algorithms.
func Verify(alg cryptoDomain.SigningAlgorithm, publicKey, message, sig []byte) (bool, error) {
	parsed, err := x509.ParsePKIXPublicKey(publicKey)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to parse public key")
	}

	switch alg {
	case cryptoDomain.SignEd25519:
		key, ok := parsed.(ed25519.PublicKey)
		if !ok {
			return false, cryptoDomain.ErrUnsupportedAlgorithm
		}
		return ed25519.Verify(key, message, sig), nil
	case cryptoDomain.SignRSA2048, cryptoDomain.SignRSA4096:
		key, ok := parsed.(*rsa.PublicKey)
		if !ok {
			return false, cryptoDomain.ErrUnsupportedAlgorithm
		}
		digest := sha256.Sum256(message)
		return rsa.VerifyPSS(key, crypto.SHA256, digest[:], sig, nil) == nil, nil
	case cryptoDomain.SignECDSAP256:
		key, ok := parsed.(*ecdsa.PublicKey)
		if !ok {
			return false, cryptoDomain.ErrUnsupportedAlgorithm
		}
		digest := sha256.Sum256(message)
		return ecdsa.VerifyASN1(key, digest[:], sig), nil
	default:
		return false, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
