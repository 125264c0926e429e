package segment

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"
	"fmt"
)

// ivFromAbsoluteIndex returns the 16-byte big-endian encoding of index, used
// as the implicit IV when a #EXT-X-KEY tag carries no explicit IV.
func ivFromAbsoluteIndex(index int) []byte {
	iv := make([]byte, 16)
	binary.BigEndian.PutUint64(iv[8:], uint64(index))
	return iv
}

// decryptAES128CBC decrypts data in place with AES-128-CBC and strips the
// PKCS#7 pad. Per spec.md §4.5, the pad is stripped from every segment
// uniformly (not just the playlist's final one).
func decryptAES128CBC(data, key, iv []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("ciphertext length %d is not a multiple of the block size", len(data))
	}
	if len(data) == 0 {
		return data, nil
	}

	mode := cipher.NewCBCDecrypter(block, iv)
	mode.CryptBlocks(data, data)

	padding := int(data[len(data)-1])
	if padding <= 0 || padding > aes.BlockSize || padding > len(data) {
		return nil, fmt.Errorf("invalid PKCS#7 padding byte %d", padding)
	}
	for _, b := range data[len(data)-padding:] {
		if int(b) != padding {
			return nil, fmt.Errorf("invalid PKCS#7 padding")
		}
	}

	return data[:len(data)-padding], nil
}
