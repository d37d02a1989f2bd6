package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/liquidpay/liquidpay/pkg/config"
)

// permitTypedData builds the EIP-712 payload for an EIP-2612 permit
// against the configured token.
func permitTypedData(chain *config.EVMChain, owner, spender common.Address, value, nonce, deadline *big.Int) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"Permit": []apitypes.Type{
				{Name: "owner", Type: "address"},
				{Name: "spender", Type: "address"},
				{Name: "value", Type: "uint256"},
				{Name: "nonce", Type: "uint256"},
				{Name: "deadline", Type: "uint256"},
			},
		},
		PrimaryType: "Permit",
		Domain: apitypes.TypedDataDomain{
			Name:              chain.TokenName,
			Version:           chain.TokenVersion,
			ChainId:           math.NewHexOrDecimal256(chain.ChainID),
			VerifyingContract: chain.TokenAddress,
		},
		Message: apitypes.TypedDataMessage{
			"owner":    owner.Hex(),
			"spender":  spender.Hex(),
			"value":    (*math.HexOrDecimal256)(value),
			"nonce":    (*math.HexOrDecimal256)(nonce),
			"deadline": (*math.HexOrDecimal256)(deadline),
		},
	}
}

// SignPermit produces the (v, r, s) signature for an EIP-2612 permit
// authorizing spender to move exactly value base units of the token on
// the owner's behalf until deadline.
func SignPermit(key *ecdsa.PrivateKey, chain *config.EVMChain, spender common.Address, value, nonce, deadline *big.Int) (v uint8, r, s [32]byte, err error) {
	owner := crypto.PubkeyToAddress(key.PublicKey)
	typedData := permitTypedData(chain, owner, spender, value, nonce, deadline)

	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return 0, r, s, fmt.Errorf("failed to hash permit: %w", err)
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return 0, r, s, fmt.Errorf("failed to sign permit: %w", err)
	}

	copy(r[:], sig[0:32])
	copy(s[:], sig[32:64])
	v = sig[64] + 27
	return v, r, s, nil
}
