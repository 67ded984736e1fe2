package tron

import (
	"encoding/hex"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// addressPrefix is the version byte of every mainnet TRON address.
const addressPrefix byte = 0x41

const (
	base58AddressLen = 34
	hexAddressLen    = 42
	payloadLen       = 20
)

// NormalizeAddress validates addr and returns its base58check form. Both the
// base58 form ("T...") and the 21-byte hex form ("41...", optionally 0x
// prefixed) are accepted. Surrounding whitespace is not stripped; a padded
// address is rejected.
func NormalizeAddress(addr string) (string, error) {
	if len(addr) == hexAddressLen+2 && (strings.HasPrefix(addr, "0x") || strings.HasPrefix(addr, "0X")) {
		addr = addr[2:]
	}

	switch len(addr) {
	case base58AddressLen:
		payload, version, err := base58.CheckDecode(addr)
		if err != nil || version != addressPrefix || len(payload) != payloadLen {
			return "", ErrBadAddress
		}
		return addr, nil
	case hexAddressLen:
		raw, err := hex.DecodeString(addr)
		if err != nil || raw[0] != addressPrefix {
			return "", ErrBadAddress
		}
		return base58.CheckEncode(raw[1:], addressPrefix), nil
	default:
		return "", ErrBadAddress
	}
}
