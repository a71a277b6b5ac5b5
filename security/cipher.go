package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/secure/precis"
)

// passwordPadding pads short passwords in the RC4 and AES-128 revisions.
var passwordPadding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

var errCipherLength = errors.New("ciphertext is not a whole number of AES blocks")

// padPassword returns the first 32 bytes of pwd completed with the padding
// string.
func padPassword(pwd []byte) []byte {
	out := make([]byte, 32)
	n := copy(out, pwd)
	copy(out[n:], passwordPadding)
	return out
}

// legacyPassword encodes a password for revisions 2 to 4, which expect
// single-byte text. Characters outside Latin-1 fall back to their UTF-8 bytes.
func legacyPassword(pwd string) []byte {
	b, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(pwd))
	if err != nil {
		return []byte(pwd)
	}
	return b
}

// modernPassword prepares a password for revisions 5 and 6: SASLprep style
// normalisation followed by truncation to 127 bytes.
func modernPassword(pwd string) []byte {
	b, err := precis.OpaqueString.Bytes([]byte(pwd))
	if err != nil {
		b = []byte(pwd)
	}
	if len(b) > 127 {
		b = b[:127]
	}
	return b
}

func rc4Crypt(key, data []byte) ([]byte, error) {
	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out, nil
}

// xorKey returns key with every byte xored with i.
func xorKey(key []byte, i byte) []byte {
	out := make([]byte, len(key))
	for j, c := range key {
		out[j] = c ^ i
	}
	return out
}

// aesDecrypt decrypts CBC data whose first block is the IV and strips the
// PKCS#5 padding.
func aesDecrypt(key, data []byte) ([]byte, error) {
	if len(data) == 0 {
		return data, nil
	}
	if len(data) < aes.BlockSize || len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes: %d bytes: %w", len(data), errCipherLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	iv, body := data[:aes.BlockSize], data[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	if n := len(out); n > 0 {
		pad := int(out[n-1])
		if pad >= 1 && pad <= aes.BlockSize && pad <= n {
			out = out[:n-pad]
		}
	}
	return out, nil
}

// aesRaw runs CBC over whole blocks without padding.
func aesRaw(key, iv, data []byte, encrypt bool) ([]byte, error) {
	if len(data)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("aes: %d bytes: %w", len(data), errCipherLength)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(data))
	if encrypt {
		cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, data)
	} else {
		cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, data)
	}
	return out, nil
}

// hardenedHash computes the revision 5 and 6 password hash over password,
// an 8-byte salt and, for owner checks, the 48-byte user entry.
func hardenedHash(pwd, salt, udata []byte, revision int) ([]byte, error) {
	h := sha256.New()
	h.Write(pwd)
	h.Write(salt)
	h.Write(udata)
	k := h.Sum(nil)
	if revision < 6 {
		return k, nil
	}

	var e []byte
	for i := 0; i < 64 || int(e[len(e)-1]) > i-32; i++ {
		seq := make([]byte, 0, len(pwd)+len(k)+len(udata))
		seq = append(seq, pwd...)
		seq = append(seq, k...)
		seq = append(seq, udata...)
		k1 := make([]byte, 0, 64*len(seq))
		for j := 0; j < 64; j++ {
			k1 = append(k1, seq...)
		}

		var err error
		e, err = aesRaw(k[:16], k[16:32], k1, true)
		if err != nil {
			return nil, err
		}

		sum := 0
		for _, c := range e[:16] {
			sum += int(c)
		}
		var next hash.Hash
		switch sum % 3 {
		case 0:
			next = sha256.New()
		case 1:
			next = sha512.New384()
		default:
			next = sha512.New()
		}
		next.Write(e)
		k = next.Sum(nil)
	}
	return k[:32], nil
}

// objectKey derives the per-object key for RC4 and AES-128.
func objectKey(fileKey []byte, id, gen int, aesSalt bool) []byte {
	h := md5.New()
	h.Write(fileKey)
	h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(gen), byte(gen >> 8)})
	if aesSalt {
		h.Write([]byte("sAlT"))
	}
	sum := h.Sum(nil)
	n := len(fileKey) + 5
	if n > 16 {
		n = 16
	}
	return sum[:n]
}
