package testutil

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/david-dina/Crypto-PP-sub000/internal/domain/entities"
)

// Well-known test addresses
const (
	TestAddress      = "0x1234567890123456789012345678901234567890"
	TestAddressOther = "0xabcdefabcdefabcdefabcdefabcdefabcdefabcd"
	TestUserID       = "user-1"
	TestCompanyID    = "company-1"
)

// PersonalPrincipal returns a personal-account principal
func PersonalPrincipal() entities.Principal {
	return entities.Principal{UserID: TestUserID, Role: entities.RolePersonal}
}

// BusinessPrincipal returns a business-account principal
func BusinessPrincipal() entities.Principal {
	return entities.Principal{UserID: TestUserID, CompanyID: TestCompanyID, Role: entities.RoleBusiness}
}

// EthereumConnection returns a MetaMask connection on Ethereum
func EthereumConnection(address string) entities.WalletConnection {
	return entities.WalletConnection{
		Address:    address,
		Provider:   "MetaMask",
		Blockchain: "Ethereum",
	}
}

// ExistingWallet returns a persisted wallet row for the test user
func ExistingWallet(id, address string, updatedAt time.Time) entities.Wallet {
	userID := TestUserID
	return entities.Wallet{
		ID:         id,
		Address:    address,
		Provider:   "MetaMask",
		Blockchain: "Ethereum",
		Balance:    decimal.RequireFromString("1.5"),
		UserID:     &userID,
		CreatedAt:  updatedAt,
		UpdatedAt:  updatedAt,
	}
}

// Decimal parses a decimal literal, panicking on bad input
func Decimal(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}
