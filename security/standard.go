package security

import (
	"bytes"
	"crypto/aes"
	"crypto/md5"
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

type cryptMethod int

const (
	methodIdentity cryptMethod = iota
	methodRC4
	methodAESV2
	methodAESV3
)

func (m cryptMethod) String() string {
	switch m {
	case methodRC4:
		return "V2"
	case methodAESV2:
		return "AESV2"
	case methodAESV3:
		return "AESV3"
	}
	return "Identity"
}

// Standard implements the password-based Standard security handler.
type Standard struct {
	version  int
	revision int
	keyLen   int // file key length in bytes

	o, u, oe, ue, perms []byte
	p                   uint32
	fileID              []byte
	encryptMetadata     bool

	stringMethod cryptMethod
	streamMethod cryptMethod
	filters      map[string]cryptMethod // /CF entries with a supported /CFM

	key   []byte
	owner bool
}

func newStandard(d *core.Dict, fileID []byte) (*Standard, error) {
	h := &Standard{fileID: fileID, encryptMetadata: true}

	v, _ := d.GetInt("V")
	r, ok := d.GetInt("R")
	if !ok {
		return nil, &core.MissingMandatoryKeyError{Key: "R", Offset: d.Pos()}
	}
	h.version, h.revision = int(v), int(r)
	if h.revision < 2 || h.revision > 6 {
		return nil, fmt.Errorf("standard handler revision %d: %w", h.revision, ErrUnsupportedEncryption)
	}
	if b, ok := d.GetBool("EncryptMetadata"); ok {
		h.encryptMetadata = b
	}
	p, ok := d.GetInt("P")
	if !ok {
		return nil, &core.MissingMandatoryKeyError{Key: "P", Offset: d.Pos()}
	}
	h.p = uint32(p)

	var err error
	if h.o, err = entryBytes(d, "O"); err != nil {
		return nil, err
	}
	if h.u, err = entryBytes(d, "U"); err != nil {
		return nil, err
	}

	switch h.version {
	case 1:
		h.keyLen = 5
		h.stringMethod, h.streamMethod = methodRC4, methodRC4
	case 2:
		bits, ok := d.GetInt("Length")
		if !ok {
			bits = 40
		}
		if bits < 40 || bits > 128 || bits%8 != 0 {
			return nil, fmt.Errorf("key length %d bits: %w", bits, ErrUnsupportedEncryption)
		}
		h.keyLen = int(bits / 8)
		h.stringMethod, h.streamMethod = methodRC4, methodRC4
	case 4:
		h.keyLen = 16
		if err := h.readCryptFilters(d); err != nil {
			return nil, err
		}
	case 5:
		h.keyLen = 32
		if err := h.readCryptFilters(d); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("encryption version %d: %w", h.version, ErrUnsupportedEncryption)
	}

	if h.revision >= 5 {
		if len(h.o) < 48 || len(h.u) < 48 {
			return nil, fmt.Errorf("revision %d needs 48-byte /O and /U: %w", h.revision, ErrUnsupportedEncryption)
		}
		if h.oe, err = entryBytes(d, "OE"); err != nil {
			return nil, err
		}
		if h.ue, err = entryBytes(d, "UE"); err != nil {
			return nil, err
		}
		if len(h.oe) < 32 || len(h.ue) < 32 {
			return nil, fmt.Errorf("revision %d needs 32-byte /OE and /UE: %w", h.revision, ErrUnsupportedEncryption)
		}
		h.perms, _ = d.GetString("Perms")
	} else if len(h.o) < 32 || len(h.u) < 32 {
		return nil, fmt.Errorf("revision %d needs 32-byte /O and /U: %w", h.revision, ErrUnsupportedEncryption)
	}
	return h, nil
}

// filterMethod maps a crypt filter dictionary's /CFM to a method.
func filterMethod(filter *core.Dict) (cryptMethod, error) {
	cfm, _ := filter.GetName("CFM")
	switch cfm {
	case "", "None":
		return methodIdentity, nil
	case "V2":
		return methodRC4, nil
	case "AESV2":
		return methodAESV2, nil
	case "AESV3":
		return methodAESV3, nil
	}
	return 0, fmt.Errorf("crypt filter method /%s: %w", cfm, ErrUnsupportedEncryption)
}

func entryBytes(d *core.Dict, key string) ([]byte, error) {
	b, ok := d.GetString(key)
	if !ok {
		return nil, &core.MissingMandatoryKeyError{Key: key, Offset: d.Pos()}
	}
	return b, nil
}

// readCryptFilters resolves /StrF and /StmF through the /CF dictionary and
// records every named filter a stream's /Crypt entry may select.
func (h *Standard) readCryptFilters(d *core.Dict) error {
	cf, _ := d.GetDict("CF")
	h.filters = make(map[string]cryptMethod)
	for _, name := range cf.Keys() {
		filter, ok := cf.GetDict(name)
		if !ok {
			continue
		}
		if m, err := filterMethod(filter); err == nil {
			h.filters[name] = m
		}
	}

	lookup := func(entry string) (cryptMethod, error) {
		name, ok := d.GetName(entry)
		if !ok || name == "Identity" {
			return methodIdentity, nil
		}
		filter, ok := cf.GetDict(name)
		if !ok {
			return 0, fmt.Errorf("crypt filter /%s not defined: %w", name, ErrUnsupportedEncryption)
		}
		return filterMethod(filter)
	}

	var err error
	if h.stringMethod, err = lookup("StrF"); err != nil {
		return err
	}
	if h.streamMethod, err = lookup("StmF"); err != nil {
		return err
	}
	if h.version == 4 {
		if bits, ok := d.GetInt("Length"); ok && bits >= 40 && bits <= 128 && bits%8 == 0 {
			h.keyLen = int(bits / 8)
		}
	}
	return nil
}

func (h *Standard) authenticate(password string) error {
	if h.revision >= 5 {
		return h.authenticateAES256(modernPassword(password))
	}

	pwd := legacyPassword(password)
	key := h.fileKey(pwd)
	if h.checkUserKey(key) {
		h.key = key
		return nil
	}

	userPwd, err := h.userFromOwner(pwd)
	if err != nil {
		return err
	}
	key = h.fileKey(userPwd)
	if h.checkUserKey(key) {
		h.key, h.owner = key, true
		return nil
	}
	return ErrInvalidPassword
}

// fileKey derives the document key from a password for revisions 2 to 4.
func (h *Standard) fileKey(pwd []byte) []byte {
	m := md5.New()
	m.Write(padPassword(pwd))
	m.Write(h.o[:32])
	m.Write([]byte{byte(h.p), byte(h.p >> 8), byte(h.p >> 16), byte(h.p >> 24)})
	m.Write(h.fileID)
	if h.revision >= 4 && !h.encryptMetadata {
		m.Write([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	}
	key := m.Sum(nil)
	if h.revision >= 3 {
		for i := 0; i < 50; i++ {
			sum := md5.Sum(key[:h.keyLen])
			key = sum[:]
		}
	}
	return key[:h.keyLen]
}

// userEntry computes the /U value a key would produce.
func (h *Standard) userEntry(key []byte) ([]byte, error) {
	if h.revision == 2 {
		return rc4Crypt(key, passwordPadding)
	}
	m := md5.New()
	m.Write(passwordPadding)
	m.Write(h.fileID)
	out, err := rc4Crypt(key, m.Sum(nil))
	if err != nil {
		return nil, err
	}
	for i := byte(1); i <= 19; i++ {
		if out, err = rc4Crypt(xorKey(key, i), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (h *Standard) checkUserKey(key []byte) bool {
	u, err := h.userEntry(key)
	if err != nil {
		return false
	}
	if h.revision == 2 {
		return bytes.Equal(u, h.u[:32])
	}
	return bytes.Equal(u[:16], h.u[:16])
}

// ownerKey is the RC4 key used to encrypt the user password into /O.
func (h *Standard) ownerKey(ownerPwd []byte) []byte {
	sum := md5.Sum(padPassword(ownerPwd))
	key := sum[:]
	if h.revision >= 3 {
		for i := 0; i < 50; i++ {
			sum = md5.Sum(key)
			key = sum[:]
		}
	}
	return key[:h.keyLen]
}

// userFromOwner recovers the padded user password from /O.
func (h *Standard) userFromOwner(ownerPwd []byte) ([]byte, error) {
	key := h.ownerKey(ownerPwd)
	if h.revision == 2 {
		return rc4Crypt(key, h.o[:32])
	}
	out := h.o[:32]
	for i := 19; i >= 0; i-- {
		var err error
		if out, err = rc4Crypt(xorKey(key, byte(i)), out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (h *Standard) authenticateAES256(pwd []byte) error {
	hash, err := hardenedHash(pwd, h.u[32:40], nil, h.revision)
	if err != nil {
		return err
	}
	if bytes.Equal(hash, h.u[:32]) {
		inter, err := hardenedHash(pwd, h.u[40:48], nil, h.revision)
		if err != nil {
			return err
		}
		if h.key, err = aesRaw(inter, make([]byte, aes.BlockSize), h.ue[:32], false); err != nil {
			return err
		}
		return h.checkPerms()
	}

	hash, err = hardenedHash(pwd, h.o[32:40], h.u[:48], h.revision)
	if err != nil {
		return err
	}
	if !bytes.Equal(hash, h.o[:32]) {
		return ErrInvalidPassword
	}
	inter, err := hardenedHash(pwd, h.o[40:48], h.u[:48], h.revision)
	if err != nil {
		return err
	}
	if h.key, err = aesRaw(inter, make([]byte, aes.BlockSize), h.oe[:32], false); err != nil {
		return err
	}
	h.owner = true
	return h.checkPerms()
}

// checkPerms verifies the encrypted copy of /P when the file carries one.
func (h *Standard) checkPerms() error {
	if len(h.perms) < aes.BlockSize {
		return nil
	}
	block, err := aes.NewCipher(h.key)
	if err != nil {
		return err
	}
	plain := make([]byte, aes.BlockSize)
	block.Decrypt(plain, h.perms[:aes.BlockSize])
	if string(plain[9:12]) != "adb" {
		return fmt.Errorf("/Perms does not match the file key: %w", ErrInvalidPassword)
	}
	p := uint32(plain[0]) | uint32(plain[1])<<8 | uint32(plain[2])<<16 | uint32(plain[3])<<24
	if p != h.p {
		return fmt.Errorf("/Perms records permissions %#x, /P has %#x: %w", p, h.p, ErrInvalidPassword)
	}
	return nil
}

func (h *Standard) decrypt(m cryptMethod, id, gen int, data []byte) ([]byte, error) {
	switch m {
	case methodRC4:
		return rc4Crypt(objectKey(h.key, id, gen, false), data)
	case methodAESV2:
		return aesDecrypt(objectKey(h.key, id, gen, true), data)
	case methodAESV3:
		return aesDecrypt(h.key, data)
	}
	return data, nil
}

// DecryptString decrypts a string belonging to object (id, gen).
func (h *Standard) DecryptString(id, gen int, data []byte) ([]byte, error) {
	out, err := h.decrypt(h.stringMethod, id, gen, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt string in object %d %d: %w", id, gen, err)
	}
	return out, nil
}

// DecryptStream decrypts stream data belonging to object (id, gen).
func (h *Standard) DecryptStream(id, gen int, data []byte) ([]byte, error) {
	out, err := h.decrypt(h.streamMethod, id, gen, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt stream %d %d: %w", id, gen, err)
	}
	return out, nil
}

// DecryptStreamWith decrypts stream data with the crypt filter the stream
// names in its /Crypt decode parameters. Before version 4 there are no named
// filters and the document stream method applies.
func (h *Standard) DecryptStreamWith(filter string, id, gen int, data []byte) ([]byte, error) {
	if filter == "Identity" {
		return data, nil
	}
	m := h.streamMethod
	if h.version >= 4 {
		var ok bool
		if m, ok = h.filters[filter]; !ok {
			return nil, fmt.Errorf("stream %d %d: crypt filter /%s not defined: %w", id, gen, filter, ErrUnsupportedEncryption)
		}
	}
	out, err := h.decrypt(m, id, gen, data)
	if err != nil {
		return nil, fmt.Errorf("decrypt stream %d %d with /%s: %w", id, gen, filter, err)
	}
	return out, nil
}

func (h *Standard) IsEncrypted() bool        { return true }
func (h *Standard) EncryptMetadata() bool    { return h.encryptMetadata }
func (h *Standard) Permissions() Permissions { return Permissions(h.p) }

// Revision returns the /R value of the handler.
func (h *Standard) Revision() int { return h.revision }

// OwnerAuthenticated reports whether the password matched the owner password.
func (h *Standard) OwnerAuthenticated() bool { return h.owner }

// Methods names the string and stream crypt methods, e.g. "AESV2".
func (h *Standard) Methods() (strings, streams string) {
	return h.stringMethod.String(), h.streamMethod.String()
}
