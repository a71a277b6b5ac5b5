// Package security decrypts the strings and streams of encrypted PDF files.
//
// [New] inspects a document's /Encrypt dictionary and returns a [Handler]:
// [None] when the document is not encrypted, or a [Standard] handler for the
// password-based Standard security handler. Standard supports RC4 (40 to 128
// bit, revisions 2 and 3), crypt filters with RC4 or AES-128 (revision 4) and
// AES-256 (revisions 5 and 6).
//
//	h, err := security.New(encryptDict, fileID, "")
//	plain, err := h.DecryptString(12, 0, cipherText)
//
// The empty user password opens most encrypted files; pass the owner or user
// password otherwise.
package security
