package evm

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var (
	addrA = common.HexToAddress("0x1111111111111111111111111111111111111111")
	addrB = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func TestBalanceOfCallData(t *testing.T) {
	data := BalanceOfCallData(addrA)
	if len(data) != 4+32 {
		t.Fatalf("len = %d, want 36", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x70, 0xa0, 0x82, 0x31}) {
		t.Errorf("selector = %x", data[:4])
	}
	if !bytes.Equal(data[4:36], common.LeftPadBytes(addrA.Bytes(), 32)) {
		t.Errorf("owner arg not left-padded")
	}
}

func TestNoncesCallData(t *testing.T) {
	data := NoncesCallData(addrA)
	if len(data) != 36 {
		t.Fatalf("len = %d, want 36", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x7e, 0xce, 0xbe, 0x00}) {
		t.Errorf("selector = %x", data[:4])
	}
}

func TestTransferFromCallData(t *testing.T) {
	value := big.NewInt(10_000_000) // 10 USDC
	data := TransferFromCallData(addrA, addrB, value)
	if len(data) != 4+3*32 {
		t.Fatalf("len = %d, want 100", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0x23, 0xb8, 0x72, 0xdd}) {
		t.Errorf("selector = %x", data[:4])
	}
	if !bytes.Equal(data[4:36], common.LeftPadBytes(addrA.Bytes(), 32)) {
		t.Errorf("from arg mismatch")
	}
	if !bytes.Equal(data[36:68], common.LeftPadBytes(addrB.Bytes(), 32)) {
		t.Errorf("to arg mismatch")
	}
	if got := new(big.Int).SetBytes(data[68:100]); got.Cmp(value) != 0 {
		t.Errorf("value arg = %s, want %s", got, value)
	}
}

func TestPermitCallData(t *testing.T) {
	value := big.NewInt(5_000_000)
	deadline := big.NewInt(1700000000)
	var r, s [32]byte
	r[0], s[31] = 0xaa, 0xbb

	data := PermitCallData(addrA, addrB, value, deadline, 27, r, s)
	if len(data) != 4+7*32 {
		t.Fatalf("len = %d, want 228", len(data))
	}
	if !bytes.Equal(data[:4], []byte{0xd5, 0x05, 0xac, 0xcf}) {
		t.Errorf("selector = %x", data[:4])
	}
	if got := new(big.Int).SetBytes(data[68:100]); got.Cmp(value) != 0 {
		t.Errorf("value arg = %s", got)
	}
	if got := new(big.Int).SetBytes(data[100:132]); got.Cmp(deadline) != 0 {
		t.Errorf("deadline arg = %s", got)
	}
	if data[163] != 27 {
		t.Errorf("v byte = %d, want 27", data[163])
	}
	if data[164] != 0xaa || data[227] != 0xbb {
		t.Errorf("r/s not laid out at tail")
	}
}
