package security

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdfgraph/core"
)

var (
	// ErrUnsupportedEncryption is returned for security handlers, versions or
	// crypt filter methods this package cannot decrypt.
	ErrUnsupportedEncryption = errors.New("unsupported encryption")

	// ErrInvalidPassword is returned when the password matches neither the
	// user nor the owner password.
	ErrInvalidPassword = errors.New("invalid password")
)

// Permissions is the /P access bit field.
type Permissions uint32

const (
	PermPrint             Permissions = 1 << 2
	PermModify            Permissions = 1 << 3
	PermCopy              Permissions = 1 << 4
	PermAnnotate          Permissions = 1 << 5
	PermFillForms         Permissions = 1 << 8
	PermExtractAccessible Permissions = 1 << 9
	PermAssemble          Permissions = 1 << 10
	PermPrintHighQuality  Permissions = 1 << 11

	allPermissions Permissions = 0xFFFFFFFC
)

// Allows reports whether every bit of want is granted.
func (p Permissions) Allows(want Permissions) bool {
	return p&want == want
}

// Handler decrypts data belonging to the indirect object (id, gen).
type Handler interface {
	DecryptString(id, gen int, data []byte) ([]byte, error)
	DecryptStream(id, gen int, data []byte) ([]byte, error)
	IsEncrypted() bool
	EncryptMetadata() bool
	Permissions() Permissions
}

// None is the handler for unencrypted documents. It returns its input.
type None struct{}

func (None) DecryptString(id, gen int, data []byte) ([]byte, error) { return data, nil }
func (None) DecryptStream(id, gen int, data []byte) ([]byte, error) { return data, nil }
func (None) IsEncrypted() bool                                      { return false }
func (None) EncryptMetadata() bool                                  { return false }
func (None) Permissions() Permissions                               { return allPermissions }

// New selects the handler for an /Encrypt dictionary. A nil dictionary yields
// None. fileID is the first element of the trailer's /ID array.
func New(encrypt *core.Dict, fileID []byte, password string) (Handler, error) {
	if encrypt == nil {
		return None{}, nil
	}
	filter, _ := encrypt.GetName("Filter")
	if filter != "Standard" {
		return nil, fmt.Errorf("security handler /%s: %w", filter, ErrUnsupportedEncryption)
	}
	h, err := newStandard(encrypt, fileID)
	if err != nil {
		return nil, err
	}
	if err := h.authenticate(password); err != nil {
		return nil, err
	}
	return h, nil
}
