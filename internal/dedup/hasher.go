package dedup

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"eventflow/pkg/message"
)

const (
	AlgorithmSHA256 = "sha256"
	AlgorithmMD5    = "md5"
)

// Hasher derives the identity of a message from a list of fields.
type Hasher struct {
	algorithm string
}

func NewHasher(algorithm string) (*Hasher, error) {
	switch algorithm {
	case "":
		algorithm = AlgorithmSHA256
	case AlgorithmSHA256, AlgorithmMD5:
	default:
		return nil, fmt.Errorf("unsupported hash algorithm %q", algorithm)
	}
	return &Hasher{algorithm: algorithm}, nil
}

// ComputeHash hashes the text form of each field in order. Absent fields
// contribute an empty string, so field order matters.
func (h *Hasher) ComputeHash(msg *message.Message, fields []string) (string, error) {
	if len(fields) == 0 {
		return "", fmt.Errorf("no fields specified for hashing")
	}

	var builder strings.Builder
	for _, field := range fields {
		val, _ := msg.GetText(field)
		builder.WriteString(val)
		builder.WriteByte('|')
	}
	input := []byte(builder.String())

	if h.algorithm == AlgorithmMD5 {
		sum := md5.Sum(input)
		return hex.EncodeToString(sum[:]), nil
	}
	sum := sha256.Sum256(input)
	return hex.EncodeToString(sum[:]), nil
}
