package usecases

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateLBCAddress(t *testing.T) {
	valid := []string{"bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F9Q", randomLBCAddress()}
	for _, address := range valid {
		assert.NoError(t, ValidateLBCAddress(address), address)
	}

	invalid := []string{
		"",
		"bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F9",   // too short
		"bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F9QQ", // too long
		"aHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F9Q",  // wrong prefix
		"bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F0Q",  // '0' is not base58
		"bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3FOQ",  // 'O' is not base58
	}
	for _, address := range invalid {
		assert.ErrorIs(t, ValidateLBCAddress(address), ErrValidation, address)
	}
}

func TestValidateUSDCAddress(t *testing.T) {
	assert.NoError(t, ValidateUSDCAddress("0x68d3a973E7272EB388022a6FB4Ba1D1C5F5D5d9F"))
	assert.NoError(t, ValidateUSDCAddress(randomUSDCAddress()))

	for _, address := range []string{"", "0x123", "bHW58d37s1hBjj3wPBkn5zpCX3F8ZW3F9Q", "0xZZd3a973E7272EB388022a6FB4Ba1D1C5F5D5d9F"} {
		assert.ErrorIs(t, ValidateUSDCAddress(address), ErrValidation, address)
	}
}
