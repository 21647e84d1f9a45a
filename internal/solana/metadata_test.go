package solana

import (
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/mr-tron/base58"
)

func TestDeriveMetadataPDA_Deterministic(t *testing.T) {
	mint := "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"

	pda1 := DeriveMetadataPDA(mint)
	pda2 := DeriveMetadataPDA(mint)
	if pda1 == "" {
		t.Fatal("expected non-empty PDA")
	}
	if pda1 != pda2 {
		t.Errorf("PDA not deterministic: %s vs %s", pda1, pda2)
	}

	// A PDA must be off the ed25519 curve.
	decoded, err := base58.Decode(pda1)
	if err != nil || len(decoded) != 32 {
		t.Fatalf("PDA not a valid 32-byte address: %v", err)
	}
	if isOnCurve(decoded) {
		t.Error("derived PDA lies on the curve")
	}
}

func TestDeriveMetadataPDA_InvalidMint(t *testing.T) {
	if pda := DeriveMetadataPDA("not-base58-!!"); pda != "" {
		t.Errorf("expected empty PDA for invalid mint, got %s", pda)
	}
	if pda := DeriveMetadataPDA("abc"); pda != "" {
		t.Errorf("expected empty PDA for short mint, got %s", pda)
	}
}

func TestParseMetaplexData(t *testing.T) {
	buf := make([]byte, 0, 200)
	buf = append(buf, 4)                  // MetadataV1 key
	buf = append(buf, make([]byte, 64)...) // updateAuthority + mint

	name := "Test Token\x00\x00"
	lenBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(name)))
	buf = append(buf, lenBuf...)
	buf = append(buf, name...)

	symbol := "TEST"
	binary.LittleEndian.PutUint32(lenBuf, uint32(len(symbol)))
	buf = append(buf, lenBuf...)
	buf = append(buf, symbol...)

	// Pad past the minimum size check.
	buf = append(buf, make([]byte, 40)...)

	meta := parseMetaplexData(base64.StdEncoding.EncodeToString(buf))
	if meta == nil {
		t.Fatal("expected metadata")
	}
	if meta.Name != "Test Token" {
		t.Errorf("Name = %q, want Test Token (NUL padding trimmed)", meta.Name)
	}
	if meta.Symbol != "TEST" {
		t.Errorf("Symbol = %q, want TEST", meta.Symbol)
	}
}

func TestParseMetaplexData_Garbage(t *testing.T) {
	if meta := parseMetaplexData("!!not-base64!!"); meta != nil {
		t.Errorf("expected nil for invalid base64, got %+v", meta)
	}
	if meta := parseMetaplexData(base64.StdEncoding.EncodeToString([]byte{1, 2, 3})); meta != nil {
		t.Errorf("expected nil for short data, got %+v", meta)
	}
}
