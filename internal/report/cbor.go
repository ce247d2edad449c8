package report

import (
	"encoding/hex"
	"fmt"

	"github.com/chiru-lang/chiru/internal/verify"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/sha3"
)

// EncodeCBOR serializes r to canonical CBOR: deterministic map key
// ordering and integer encoding, so byte-for-byte output is stable across
// repeated runs on identical state (restates spec.md §8's P7 at the wire
// level). Mirrors core/planfmt/canonical.go's MarshalBinary.
func EncodeCBOR(r *verify.Report) ([]byte, error) {
	encMode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("chiru: failed to create CBOR encoder: %w", err)
	}

	type reportAlias verify.Report // avoid recursing through any MarshalBinary on Report
	data, err := encMode.Marshal((*reportAlias)(r))
	if err != nil {
		return nil, fmt.Errorf("chiru: CBOR encoding failed: %w", err)
	}
	return data, nil
}

// Digest computes the report digest: SHA3-256 over the canonical CBOR
// encoding, hex-encoded. Grounded on core/planfmt/idfactory.go's choice of
// SHA3 over stdlib SHA-256 for content-addressed digests. Two reports with
// identical verdict/summary/phases/assumptions/values always produce the
// same digest (P8).
func Digest(r *verify.Report) (string, error) {
	// Digest must not depend on any previously computed digest, so hash a
	// copy with Digest cleared.
	clean := *r
	clean.Digest = ""

	data, err := EncodeCBOR(&clean)
	if err != nil {
		return "", err
	}
	sum := sha3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
