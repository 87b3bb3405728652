// Package password hashes identity passwords with Argon2id in the PHC string format.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

type params struct {
	memory  uint32
	time    uint32
	threads uint8
	keyLen  uint32
}

var defaultParams = params{memory: 64 * 1024, time: 1, threads: 4, keyLen: 32}

const saltLen = 16

var errMalformed = errors.New("malformed password hash")

var b64 = base64.RawStdEncoding

// Hash returns the encoded Argon2id hash of plain.
func Hash(plain string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	p := defaultParams
	key := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.memory, p.time, p.threads, b64.EncodeToString(salt), b64.EncodeToString(key)), nil
}

// Verify reports whether plain matches encoded. Malformed hashes never match.
func Verify(plain, encoded string) bool {
	p, salt, key, err := decode(encoded)
	if err != nil {
		return false
	}
	check := argon2.IDKey([]byte(plain), salt, p.time, p.memory, p.threads, p.keyLen)
	return subtle.ConstantTimeCompare(key, check) == 1
}

func decode(encoded string) (params, []byte, []byte, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[1] != "argon2id" {
		return params{}, nil, nil, errMalformed
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil || version != argon2.Version {
		return params{}, nil, nil, errMalformed
	}

	var p params
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return params{}, nil, nil, errMalformed
	}

	salt, err := b64.DecodeString(fields[4])
	if err != nil {
		return params{}, nil, nil, errMalformed
	}
	key, err := b64.DecodeString(fields[5])
	if err != nil || len(key) == 0 {
		return params{}, nil, nil, errMalformed
	}
	p.keyLen = uint32(len(key))
	return p, salt, key, nil
}
