// Package cryptox derives the family credentials exchanged at registration
// and login. The password never leaves the device: the server only sees the
// salt and a verifier derived from the argon2id key.
package cryptox

import (
	"crypto/sha256"

	"github.com/dmitrijs2005/gophfocus/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 32
	KeySize  = 32
)

func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}
