package domain

// BlobFormatV1 is the format version byte prefixing every encrypted field
// stored by the platform. Bumping the format requires a new constant so old
// rows keep decoding.
const BlobFormatV1 byte = 0x01

// EncodeBlob frames an AEAD encryption result for storage as a single column:
// format version byte, then the nonce, then the ciphertext with its
// authentication tag.
func EncodeBlob(nonce, ciphertext []byte) ([]byte, error) {
	if len(nonce) != NonceSize {
		return nil, ErrMalformedBlob
	}

	blob := make([]byte, 0, 1+NonceSize+len(ciphertext))
	blob = append(blob, BlobFormatV1)
	blob = append(blob, nonce...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// DecodeBlob splits a stored encrypted field back into nonce and ciphertext.
// The returned slices alias blob; callers must not modify them.
func DecodeBlob(blob []byte) (nonce, ciphertext []byte, err error) {
	if len(blob) < 1+NonceSize+TagSize {
		return nil, nil, ErrMalformedBlob
	}
	if blob[0] != BlobFormatV1 {
		return nil, nil, ErrUnsupportedBlobFormat
	}
	return blob[1 : 1+NonceSize], blob[1+NonceSize:], nil
}
