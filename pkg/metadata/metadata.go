// Package metadata signs generated documents with a trailing metadata block so
// later edits to the body can be detected.
package metadata

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

const (
	// TagStart is the start of the metadata block.
	TagStart = "<!-- METADATA_START"
	// TagEnd is the end of the metadata block.
	TagEnd = "METADATA_END -->"
)

// Metadata verification errors.
var (
	ErrNoMetadataBlock = errors.New("no metadata block found")
	ErrNoHashFound     = errors.New("no hash found in metadata")
	ErrHashMismatch    = errors.New("hash mismatch")
)

// Metadata describes where a document came from.
type Metadata struct {
	GeneratedAt time.Time
	Source      string
	Hash        string
}

// metadataRegex matches the entire metadata block including tags.
var metadataRegex = regexp.MustCompile(`(?s)<!--\s*METADATA_START\s*\n(.*?)\n\s*METADATA_END\s*-->`)

// Extract removes the metadata block from content and returns both the metadata
// and the body. The body is what gets hashed.
func Extract(content string) (*Metadata, string) {
	match := metadataRegex.FindStringSubmatch(content)
	body := metadataRegex.ReplaceAllString(content, "")
	body = strings.TrimRight(body, "\n")

	if len(match) < 2 {
		return nil, body
	}

	meta := &Metadata{}

	for line := range strings.SplitSeq(match[1], "\n") {
		key, val, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}

		val = strings.TrimSpace(val)

		switch strings.TrimSpace(key) {
		case "GENERATED_AT":
			if t, err := time.Parse(time.RFC3339, val); err == nil {
				meta.GeneratedAt = t
			}
		case "SOURCE":
			meta.Source = val
		case "HASH":
			meta.Hash = val
		}
	}

	return meta, body
}

// CalculateHash computes the SHA-256 hash of the body of content.
func CalculateHash(content string) string {
	_, body := Extract(content)
	hash := sha256.Sum256([]byte(body))

	return hex.EncodeToString(hash[:])
}

// Sign replaces any metadata block in content with a fresh one. A zero
// GeneratedAt is set to the current time; meta.Hash is ignored.
func Sign(content string, meta Metadata) string {
	_, body := Extract(content)

	generated := meta.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	block := fmt.Sprintf("\n\n%s\nGENERATED_AT: %s\nSOURCE: %s\nHASH: %s\n%s\n",
		TagStart, generated.UTC().Format(time.RFC3339), meta.Source, CalculateHash(body), TagEnd)

	return body + block
}

// Verify checks that the body of content matches the hash in its metadata.
func Verify(content string) (*Metadata, error) {
	meta, body := Extract(content)
	if meta == nil {
		return nil, ErrNoMetadataBlock
	}

	if meta.Hash == "" {
		return meta, ErrNoHashFound
	}

	if calculated := CalculateHash(body); calculated != meta.Hash {
		return meta, fmt.Errorf("%w: expected %s, got %s", ErrHashMismatch, meta.Hash, calculated)
	}

	return meta, nil
}
