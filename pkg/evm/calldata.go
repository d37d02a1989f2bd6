package evm

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Function selectors for the USDC contract surface this service uses.
var (
	// balanceOf(address)
	balanceOfSig = []byte{0x70, 0xa0, 0x82, 0x31}
	// nonces(address)
	noncesSig = []byte{0x7e, 0xce, 0xbe, 0x00}
	// permit(address,address,uint256,uint256,uint8,bytes32,bytes32)
	permitSig = []byte{0xd5, 0x05, 0xac, 0xcf}
	// transferFrom(address,address,uint256)
	transferFromSig = []byte{0x23, 0xb8, 0x72, 0xdd}
)

// BalanceOfCallData encodes balanceOf(owner).
func BalanceOfCallData(owner common.Address) []byte {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, balanceOfSig...)
	callData = append(callData, common.LeftPadBytes(owner.Bytes(), 32)...)
	return callData
}

// NoncesCallData encodes nonces(owner).
func NoncesCallData(owner common.Address) []byte {
	callData := make([]byte, 0, 4+32)
	callData = append(callData, noncesSig...)
	callData = append(callData, common.LeftPadBytes(owner.Bytes(), 32)...)
	return callData
}

// PermitCallData encodes permit(owner, spender, value, deadline, v, r, s).
func PermitCallData(owner, spender common.Address, value, deadline *big.Int, v uint8, r, s [32]byte) []byte {
	callData := make([]byte, 0, 4+7*32)
	callData = append(callData, permitSig...)
	callData = append(callData, common.LeftPadBytes(owner.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(spender.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(value.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(deadline.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes([]byte{v}, 32)...)
	callData = append(callData, r[:]...)
	callData = append(callData, s[:]...)
	return callData
}

// TransferFromCallData encodes transferFrom(from, to, value).
func TransferFromCallData(from, to common.Address, value *big.Int) []byte {
	callData := make([]byte, 0, 4+3*32)
	callData = append(callData, transferFromSig...)
	callData = append(callData, common.LeftPadBytes(from.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(to.Bytes(), 32)...)
	callData = append(callData, common.LeftPadBytes(value.Bytes(), 32)...)
	return callData
}
