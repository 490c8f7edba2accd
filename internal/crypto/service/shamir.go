package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/usphq/usp/internal/crypto/domain"
	"github.com/usphq/usp/internal/errors"
)

// Shamir secret sharing over GF(2^8) with the AES field polynomial (0x11B).
//
// Each byte of the secret becomes the constant term of a fresh random
// polynomial of degree threshold-1; a share holds that polynomial's value at
// the share's x-coordinate for every secret byte, with the x-coordinate
// appended as the final byte. Any threshold shares reconstruct the secret by
// Lagrange interpolation at x=0; fewer reveal nothing.
//
// Combining a wrong-but-well-formed share set yields garbage rather than an
// error. Callers that need to detect that (the seal layer does) must verify
// the reconstructed secret against independent material such as a checksum.

// ShareOverhead is the number of bytes each share adds over the secret length:
// one trailing x-coordinate byte.
const ShareOverhead = 1

// SplitSecret splits secret into parts shares, any threshold of which
// reconstruct it. Requires 2 <= threshold <= parts <= 255.
func SplitSecret(secret []byte, parts, threshold int) ([][]byte, error) {
	if threshold < 2 || threshold > 255 {
		return nil, cryptoDomain.ErrInvalidThreshold
	}
	if parts < threshold || parts > 255 {
		return nil, cryptoDomain.ErrInvalidShareCount
	}
	if len(secret) == 0 {
		return nil, errors.Wrap(errors.ErrInvalidInput, "cannot split an empty secret")
	}

	// x-coordinates 1..parts; zero is reserved for the secret itself.
	shares := make([][]byte, parts)
	for i := range shares {
		shares[i] = make([]byte, len(secret)+ShareOverhead)
		shares[i][len(secret)] = byte(i + 1)
	}

	coefficients := make([]byte, threshold)
	defer cryptoDomain.Zero(coefficients)

	for idx, b := range secret {
		coefficients[0] = b
		if _, err := rand.Read(coefficients[1:]); err != nil {
			return nil, fmt.Errorf("failed to generate polynomial: %w", err)
		}

		for i := range shares {
			x := shares[i][len(secret)]
			shares[i][idx] = evaluate(coefficients, x)
		}
	}

	return shares, nil
}

// CombineShares reconstructs the secret from shares produced by SplitSecret.
// At least two shares are required; all must have equal length and distinct
// non-zero x-coordinates.
func CombineShares(shares [][]byte) ([]byte, error) {
	if len(shares) < 2 {
		return nil, errors.Wrap(cryptoDomain.ErrIncoherentShares, "at least two shares required")
	}

	length := len(shares[0])
	if length < ShareOverhead+1 {
		return nil, errors.Wrap(cryptoDomain.ErrIncoherentShares, "share too short")
	}
	for _, share := range shares[1:] {
		if len(share) != length {
			return nil, errors.Wrap(cryptoDomain.ErrIncoherentShares, "share lengths differ")
		}
	}

	secretLen := length - ShareOverhead
	xSamples := make([]byte, len(shares))
	seen := make(map[byte]bool, len(shares))
	for i, share := range shares {
		x := share[secretLen]
		if x == 0 {
			return nil, errors.Wrap(cryptoDomain.ErrIncoherentShares, "share has zero x-coordinate")
		}
		if seen[x] {
			return nil, errors.Wrap(cryptoDomain.ErrIncoherentShares, "duplicate share")
		}
		seen[x] = true
		xSamples[i] = x
	}

	secret := make([]byte, secretLen)
	ySamples := make([]byte, len(shares))
	for idx := 0; idx < secretLen; idx++ {
		for i, share := range shares {
			ySamples[i] = share[idx]
		}
		secret[idx] = interpolateAtZero(xSamples, ySamples)
	}

	return secret, nil
}

// evaluate computes the polynomial with the given coefficients (constant term
// first) at x using Horner's method in GF(2^8).
func evaluate(coefficients []byte, x byte) byte {
	if x == 0 {
		return coefficients[0]
	}

	out := coefficients[len(coefficients)-1]
	for i := len(coefficients) - 2; i >= 0; i-- {
		out = gfMult(out, x) ^ coefficients[i]
	}
	return out
}

// interpolateAtZero evaluates the Lagrange interpolation polynomial defined by
// the sample points at x=0, recovering one secret byte.
func interpolateAtZero(xSamples, ySamples []byte) byte {
	var result byte
	for i := range xSamples {
		basis := byte(1)
		for j := range xSamples {
			if i == j {
				continue
			}
			// In GF(2^8), 0 - x_j == x_j and x_i - x_j == x_i ^ x_j.
			basis = gfMult(basis, gfDiv(xSamples[j], xSamples[i]^xSamples[j]))
		}
		result ^= gfMult(basis, ySamples[i])
	}
	return result
}

// gfMult multiplies two elements of GF(2^8), reducing by the AES polynomial.
// Always eight masked rounds; timing is independent of the operand values.
func gfMult(a, b byte) byte {
	var r byte
	for i := 0; i < 8; i++ {
		r ^= a & -(b & 1)
		carry := -(a >> 7)
		a = (a << 1) ^ (0x1B & carry)
		b >>= 1
	}
	return r
}

// gfDiv divides a by b in GF(2^8). b must be non-zero; CombineShares
// guarantees that by rejecting duplicate x-coordinates.
func gfDiv(a, b byte) byte {
	return gfMult(a, gfInverse(b))
}

// gfInverse computes b^254, the multiplicative inverse in GF(2^8), via a fixed
// addition chain.
func gfInverse(a byte) byte {
	b := gfMult(a, a) // a^2
	c := gfMult(a, b) // a^3
	b = gfMult(c, c)  // a^6
	b = gfMult(b, b)  // a^12
	c = gfMult(b, c)  // a^15
	b = gfMult(b, b)  // a^24
	b = gfMult(b, b)  // a^48
	b = gfMult(b, c)  // a^63
	b = gfMult(b, b)  // a^126
	b = gfMult(a, b)  // a^127
	return gfMult(b, b) // a^254
}
