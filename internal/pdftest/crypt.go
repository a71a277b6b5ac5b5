package pdftest

import (
	"crypto/md5"
	"crypto/rc4"
	"fmt"
)

var padding = []byte{
	0x28, 0xBF, 0x4E, 0x5E, 0x4E, 0x75, 0x8A, 0x41,
	0x64, 0x00, 0x4E, 0x56, 0xFF, 0xFA, 0x01, 0x08,
	0x2E, 0x2E, 0x00, 0xB6, 0xD0, 0x68, 0x3E, 0x80,
	0x2F, 0x0C, 0xA9, 0xFE, 0x64, 0x53, 0x69, 0x7A,
}

// RC4 encrypts documents with the Standard security handler, revision 3 and
// a 128-bit key.
type RC4 struct {
	Key     []byte
	Encrypt string // the /Encrypt dictionary literal
}

// NewRC4 derives /O, /U and the file key for the given passwords, trailer
// /ID first element and permissions.
func NewRC4(user, owner string, fileID []byte, p int32) *RC4 {
	ownerKey := md5.Sum(pad(owner))
	for i := 0; i < 50; i++ {
		ownerKey = md5.Sum(ownerKey[:])
	}
	o := rc4XOR(ownerKey[:], pad(user))
	for i := byte(1); i <= 19; i++ {
		o = rc4XOR(xor(ownerKey[:], i), o)
	}

	h := md5.New()
	h.Write(pad(user))
	h.Write(o)
	h.Write([]byte{byte(p), byte(p >> 8), byte(p >> 16), byte(p >> 24)})
	h.Write(fileID)
	key := h.Sum(nil)
	for i := 0; i < 50; i++ {
		sum := md5.Sum(key[:16])
		key = sum[:]
	}

	seed := md5.Sum(append(append([]byte{}, padding...), fileID...))
	u := rc4XOR(key, seed[:])
	for i := byte(1); i <= 19; i++ {
		u = rc4XOR(xor(key, i), u)
	}
	u = append(u, make([]byte, 16)...)

	return &RC4{
		Key:     key,
		Encrypt: fmt.Sprintf("<< /Filter /Standard /V 2 /R 3 /Length 128 /P %d /O <%X> /U <%X> >>", p, o, u),
	}
}

// Seal encrypts data belonging to object (id, gen).
func (c *RC4) Seal(id, gen int, data []byte) []byte {
	h := md5.New()
	h.Write(c.Key)
	h.Write([]byte{byte(id), byte(id >> 8), byte(id >> 16), byte(gen), byte(gen >> 8)})
	return rc4XOR(h.Sum(nil), data)
}

// Hex returns Seal of s as a hexadecimal string literal.
func (c *RC4) Hex(id, gen int, s string) string {
	return fmt.Sprintf("<%X>", c.Seal(id, gen, []byte(s)))
}

func pad(pwd string) []byte {
	out := make([]byte, 32)
	n := copy(out, pwd)
	copy(out[n:], padding)
	return out
}

func xor(key []byte, i byte) []byte {
	out := make([]byte, len(key))
	for j, c := range key {
		out[j] = c ^ i
	}
	return out
}

func rc4XOR(key, data []byte) []byte {
	c, err := rc4.NewCipher(key)
	if err != nil {
		panic(err)
	}
	out := make([]byte, len(data))
	c.XORKeyStream(out, data)
	return out
}
