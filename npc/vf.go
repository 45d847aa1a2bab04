package npc

import (
	"encoding/binary"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/golang-jwt/jwt/v5"
)

// BaseRuleClaims is the admin function's delegation capability: it binds a
// VF's pcifunc to the fingerprint of its base MCAM key/mask, so that
// merging a VF's base rule into a newly-created rule can be verified
// instead of trusted blindly (spec.md §4.6 "VF base-rule merging").
type BaseRuleClaims struct {
	jwt.RegisteredClaims
	PCIFunc     uint16 `json:"pcifunc"`
	BaseKeyHash uint64 `json:"base_key_hash"`
}

// hashKeyMask fingerprints a key+mask pair with xxhash, used both as the
// JWT claim payload and to verify it at merge time without re-shipping the
// full 7-word key material through the token.
func hashKeyMask(key, maskW [7]uint64) uint64 {
	var buf [14 * 8]byte
	for i := 0; i < 7; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], key[i])
		binary.LittleEndian.PutUint64(buf[(7+i)*8:], maskW[i])
	}
	return xxhash.Sum64(buf[:])
}

// SignBaseRule issues a delegation token binding pcifunc to the fingerprint
// of its base key+mask, signed with the admin function's HMAC secret.
func SignBaseRule(secret []byte, pcifunc uint16, baseKey, baseMask [7]uint64, issuedAt time.Time) (string, error) {
	claims := BaseRuleClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(issuedAt),
		},
		PCIFunc:     pcifunc,
		BaseKeyHash: hashKeyMask(baseKey, baseMask),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

var errBaseRuleMismatch = errors.New("npc: base-rule delegation token does not match pcifunc/key")

// MergeVFBaseRule ORs a VF's base MCAM key+mask into entry, but only after
// verifying token was issued for exactly this pcifunc and this base
// key/mask -- this is what stops a VF from forging another LF's channel by
// supplying someone else's base rule (spec.md §4.6).
func MergeVFBaseRule(secret []byte, entry *Entry, pcifunc uint16, baseKey, baseMask [7]uint64, token string) error {
	parsed, err := jwt.ParseWithClaims(token, &BaseRuleClaims{}, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return err
	}
	claims, ok := parsed.Claims.(*BaseRuleClaims)
	if !ok || !parsed.Valid {
		return errBaseRuleMismatch
	}
	if claims.PCIFunc != pcifunc || claims.BaseKeyHash != hashKeyMask(baseKey, baseMask) {
		return errBaseRuleMismatch
	}

	for i := range entry.KeyData {
		entry.KeyData[i] |= baseKey[i]
		entry.KeyMask[i] |= baseMask[i]
	}
	return nil
}
