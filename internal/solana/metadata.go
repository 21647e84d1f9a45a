package solana

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// metaplexProgramID is the Metaplex Token Metadata program.
const metaplexProgramID = "metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s"

// TokenMetadata holds the human-readable fields of a mint's metadata
// account.
type TokenMetadata struct {
	Name   string
	Symbol string
}

// FetchTokenMetadata resolves the Metaplex metadata account for a mint
// and parses its name and symbol. Returns nil when the mint has no
// metadata account; this is common for very new tokens and not an error.
func FetchTokenMetadata(ctx context.Context, rpc RPCClient, mint string) (*TokenMetadata, error) {
	pda := DeriveMetadataPDA(mint)
	if pda == "" {
		return nil, nil
	}

	info, err := rpc.GetAccountInfo(ctx, pda)
	if err != nil {
		return nil, err
	}
	if info == nil || info.Data == "" {
		return nil, nil
	}

	meta := parseMetaplexData(info.Data)
	return meta, nil
}

// DeriveMetadataPDA derives the Metaplex metadata PDA for a mint.
// Seeds: ["metadata", metaplex_program_id, mint].
func DeriveMetadataPDA(mint string) string {
	mintBytes, err := base58.Decode(mint)
	if err != nil {
		return ""
	}
	programBytes, err := base58.Decode(metaplexProgramID)
	if err != nil {
		return ""
	}
	if len(mintBytes) != 32 || len(programBytes) != 32 {
		return ""
	}

	seeds := [][]byte{
		[]byte("metadata"),
		programBytes,
		mintBytes,
	}
	return derivePDA(seeds, programBytes)
}

// derivePDA derives a Program Derived Address using the Solana
// algorithm: sha256(seeds || bump || programID || marker), taking the
// highest bump whose hash falls off the ed25519 curve.
func derivePDA(seeds [][]byte, programID []byte) string {
	for bump := byte(255); bump > 0; bump-- {
		data := make([]byte, 0, 128)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, bump)
		data = append(data, programID...)
		data = append(data, []byte("ProgramDerivedAddress")...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:])
		}
	}
	return ""
}

// isOnCurve reports whether a 32-byte value is a valid ed25519 point.
func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// parseMetaplexData parses a Metaplex Token Metadata account.
// Layout: key(1) | updateAuthority(32) | mint(32) | name(borsh string) |
// symbol(borsh string) | ...
func parseMetaplexData(data string) *TokenMetadata {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil
	}
	if len(decoded) < 100 {
		return nil
	}
	if decoded[0] != 4 { // MetadataV1 key
		return nil
	}

	meta := &TokenMetadata{}
	offset := 65 // key(1) + updateAuthority(32) + mint(32)

	name, offset, ok := borshString(decoded, offset, 100)
	if !ok {
		return nil
	}
	meta.Name = name

	symbol, _, ok := borshString(decoded, offset, 20)
	if !ok {
		return meta
	}
	meta.Symbol = symbol

	if meta.Name == "" && meta.Symbol == "" {
		return nil
	}
	return meta
}

// borshString reads a 4-byte-length-prefixed string, trimming NUL padding.
func borshString(data []byte, offset, maxLen int) (string, int, bool) {
	if offset+4 > len(data) {
		return "", offset, false
	}
	length := int(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	if length > maxLen || offset+length > len(data) {
		return "", offset, false
	}
	s := strings.TrimRight(string(data[offset:offset+length]), "\x00")
	return s, offset + length, true
}
