package pandora

import (
	"bytes"
	"encoding/hex"
	"strconv"

	"github.com/cockroachdb/errors"
	"golang.org/x/crypto/blowfish"
)

// encrypt encrypts s with Blowfish in ECB mode and returns lowercase hex.
// The input is zero padded to the block size.
func encrypt(key, s string) (string, error) {
	c, err := blowfish.NewCipher([]byte(key))
	if err != nil {
		return "", errors.Wrap(err, "failed to create cipher")
	}

	src := []byte(s)
	if r := len(src) % blowfish.BlockSize; r != 0 {
		src = append(src, make([]byte, blowfish.BlockSize-r)...)
	}
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += blowfish.BlockSize {
		c.Encrypt(dst[i:i+blowfish.BlockSize], src[i:i+blowfish.BlockSize])
	}
	return hex.EncodeToString(dst), nil
}

// decrypt reverses encrypt. Trailing zero padding is removed.
func decrypt(key, s string) ([]byte, error) {
	src, err := hex.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode hex")
	}
	if len(src)%blowfish.BlockSize != 0 {
		return nil, errors.Newf("ciphertext length %d is not a multiple of %d", len(src), blowfish.BlockSize)
	}

	c, err := blowfish.NewCipher([]byte(key))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cipher")
	}
	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += blowfish.BlockSize {
		c.Decrypt(dst[i:i+blowfish.BlockSize], src[i:i+blowfish.BlockSize])
	}
	return bytes.TrimRight(dst, "\x00"), nil
}

// decryptSyncTime extracts the server time from the partner login
// response: four junk bytes followed by decimal seconds.
func decryptSyncTime(key, s string) (int64, error) {
	b, err := decrypt(key, s)
	if err != nil {
		return 0, err
	}
	if len(b) <= 4 {
		return 0, errors.New("sync time too short")
	}
	t, err := strconv.ParseInt(string(bytes.TrimSpace(b[4:])), 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse sync time")
	}
	return t, nil
}
