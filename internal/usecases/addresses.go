package usecases

import (
	"regexp"

	"github.com/ethereum/go-ethereum/common"
)

// LBRY addresses are base58 strings starting with 'b', 34 characters long.
var lbcAddressPattern = regexp.MustCompile(`^b[1-9A-HJ-NP-Za-km-z]{33}$`)

// ValidateLBCAddress checks the shape of an LBRY credits address.
func ValidateLBCAddress(address string) error {
	if !lbcAddressPattern.MatchString(address) {
		return newValidationError("LBC_Address", "must start with 'b' and be 34 base58 characters")
	}
	return nil
}

// ValidateUSDCAddress checks that address is an EVM account the stablecoin can be sent to.
func ValidateUSDCAddress(address string) error {
	if !common.IsHexAddress(address) {
		return newValidationError("USDC_Address", "must be a 0x-prefixed hex address")
	}
	return nil
}
