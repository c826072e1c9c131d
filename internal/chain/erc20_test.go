package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

type fakeCaller struct {
	responses map[string][]byte
}

func (f *fakeCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	resp, ok := f.responses[string(msg.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return resp, nil
}

func TestFetchTokenMetaStringABI(t *testing.T) {
	stringABI, _, err := erc20ABIs()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	pack := func(method string, value interface{}) []byte {
		out, err := stringABI.Methods[method].Outputs.Pack(value)
		if err != nil {
			t.Fatalf("pack %s: %v", method, err)
		}
		return out
	}

	caller := &fakeCaller{responses: map[string][]byte{
		string(stringABI.Methods["decimals"].ID): pack("decimals", uint8(18)),
		string(stringABI.Methods["symbol"].ID):   pack("symbol", "CAKE"),
		string(stringABI.Methods["name"].ID):     pack("name", "PancakeSwap Token"),
	}}

	token := common.HexToAddress("0x0e09fabb73bd3ade0a17ecc321fd13a19e81ce82")
	meta, err := FetchTokenMeta(context.Background(), caller, token, nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Decimals != 18 || meta.Symbol != "CAKE" || meta.Name != "PancakeSwap Token" {
		t.Fatalf("meta mismatch: %+v", meta)
	}
	if meta.Label() != "CAKE" {
		t.Fatalf("label mismatch: %s", meta.Label())
	}
}

func TestFetchTokenMetaBytes32Fallback(t *testing.T) {
	stringABI, bytes32ABI, err := erc20ABIs()
	if err != nil {
		t.Fatalf("abi: %v", err)
	}

	var symbol [32]byte
	copy(symbol[:], "MKR")
	symbolOut, err := bytes32ABI.Methods["symbol"].Outputs.Pack(symbol)
	if err != nil {
		t.Fatalf("pack symbol: %v", err)
	}
	decimalsOut, err := stringABI.Methods["decimals"].Outputs.Pack(uint8(18))
	if err != nil {
		t.Fatalf("pack decimals: %v", err)
	}

	// The bytes32 symbol selector matches the string one; a string decode of
	// a bytes32 payload fails and the fallback is used.
	caller := &fakeCaller{responses: map[string][]byte{
		string(stringABI.Methods["decimals"].ID): decimalsOut,
		string(bytes32ABI.Methods["symbol"].ID):  symbolOut,
	}}

	meta, err := FetchTokenMeta(context.Background(), caller, common.HexToAddress("0x1111111111111111111111111111111111111111"), nil)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if meta.Symbol != "MKR" {
		t.Fatalf("symbol mismatch: %q", meta.Symbol)
	}
	if meta.Name != "" {
		t.Fatalf("name should be empty, got %q", meta.Name)
	}
}

func TestFetchTokenMetaRequiresDecimals(t *testing.T) {
	caller := &fakeCaller{responses: map[string][]byte{}}
	if _, err := FetchTokenMeta(context.Background(), caller, common.Address{}, nil); err == nil {
		t.Fatalf("expected error when decimals call fails")
	}
}
