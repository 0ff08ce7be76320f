package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = 32
)

var errMalformedHash = errors.New("malformed argon2 hash")

// HashSecret hashes a secret with argon2id and encodes parameters, salt and
// hash into a single string:
// $argon2id$v=19$m=65536,t=1,p=4$BASE64_SALT$BASE64_HASH
// It is used both for passwords and for refresh tokens at rest.
func HashSecret(secret string) (string, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	hash := argon2.IDKey([]byte(secret), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedHash := base64.RawStdEncoding.EncodeToString(hash)

	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argonMemory, argonTime, argonThreads, encodedSalt, encodedHash), nil
}

// VerifySecret re-hashes the candidate with the parameters and salt encoded
// in the stored hash and compares in constant time.
func VerifySecret(encoded, candidate string) bool {
	salt, hash, params, err := decodeHash(encoded)
	if err != nil {
		return false
	}

	comparison := argon2.IDKey([]byte(candidate), salt, params.time, params.memory, params.threads, uint32(len(hash)))
	return subtle.ConstantTimeCompare(hash, comparison) == 1
}

type argonParams struct {
	memory  uint32
	time    uint32
	threads uint8
}

func decodeHash(encoded string) ([]byte, []byte, argonParams, error) {
	var params argonParams

	sections := strings.Split(encoded, "$")
	// Expected: ["", "argon2id", "v=19", "m=...,t=...,p=...", salt, hash]
	if len(sections) != 6 || sections[1] != "argon2id" {
		return nil, nil, params, errMalformedHash
	}

	var version int
	if _, err := fmt.Sscanf(sections[2], "v=%d", &version); err != nil || version != argon2.Version {
		return nil, nil, params, errMalformedHash
	}

	var threads uint32
	if _, err := fmt.Sscanf(sections[3], "m=%d,t=%d,p=%d", &params.memory, &params.time, &threads); err != nil {
		return nil, nil, params, errMalformedHash
	}
	params.threads = uint8(threads)

	salt, err := base64.RawStdEncoding.DecodeString(sections[4])
	if err != nil {
		return nil, nil, params, errMalformedHash
	}
	hash, err := base64.RawStdEncoding.DecodeString(sections[5])
	if err != nil {
		return nil, nil, params, errMalformedHash
	}

	return salt, hash, params, nil
}
