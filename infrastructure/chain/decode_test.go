package chain

import (
	"math/big"
	"testing"

	"optio-backend/domain/core/valueobjects"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func mustParseABI(t *testing.T) abi.ABI {
	t.Helper()
	parsed, err := ParseABI()
	require.NoError(t, err)
	return parsed
}

// roundTrip encodes values as method's return data and decodes them the way a
// bound contract call would.
func roundTrip(t *testing.T, parsed abi.ABI, method string, values ...interface{}) []interface{} {
	t.Helper()
	outputs := parsed.Methods[method].Outputs
	data, err := outputs.Pack(values...)
	require.NoError(t, err)
	out, err := outputs.Unpack(data)
	require.NoError(t, err)
	return out
}

func TestParseABI(t *testing.T) {
	parsed := mustParseABI(t)

	for _, name := range []string{
		methodGetFullNexusBatch, methodGetFullOptioBatch, methodNexusCount,
		methodAddressToName, methodGetCurrentBid, methodFiscus, methodSumma,
		methodBalanceOf, methodContribute, methodBind, methodRegister,
		methodSacrifice, methodWithdraw,
	} {
		assert.Contains(t, parsed.Methods, name)
	}
	require.Contains(t, parsed.Events, eventLinkedOptio)
	assert.Len(t, parsed.Events[eventLinkedOptio].Inputs, 3)
	assert.True(t, parsed.Methods[methodContribute].IsPayable())
	assert.True(t, parsed.Methods[methodBind].IsPayable())
}

func TestDecodeNexusBatch(t *testing.T) {
	parsed := mustParseABI(t)
	out := roundTrip(t, parsed, methodGetFullNexusBatch,
		[]common.Address{alice, bob},
		[]string{"Once upon a time", "The end"},
		[][]*big.Int{{big.NewInt(1), big.NewInt(3)}, {}},
	)

	nexuses, err := decodeNexusBatch(out)

	require.NoError(t, err)
	require.Len(t, nexuses, 2)
	assert.Equal(t, alice.Hex(), nexuses[0].Author)
	assert.Equal(t, "Once upon a time", nexuses[0].Content)
	assert.Equal(t, []valueobjects.OptioID{1, 3}, nexuses[0].Next)
	assert.Equal(t, bob.Hex(), nexuses[1].Author)
	assert.Empty(t, nexuses[1].Next)
}

func TestDecodeNexusBatch_RejectsMalformedOutput(t *testing.T) {
	tests := []struct {
		name string
		out  []interface{}
	}{
		{"too few outputs", []interface{}{[]common.Address{alice}}},
		{"wrong element type", []interface{}{[]string{"x"}, []string{"y"}, [][]*big.Int{{}}}},
		{"mismatched lengths", []interface{}{[]common.Address{alice, bob}, []string{"only one"}, [][]*big.Int{{}, {}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeNexusBatch(tt.out)
			assert.Error(t, err)
		})
	}
}

func TestDecodeOptioBatch(t *testing.T) {
	parsed := mustParseABI(t)
	out := roundTrip(t, parsed, methodGetFullOptioBatch,
		[]common.Address{bob},
		[]string{"Enter the forest"},
		[]*big.Int{big.NewInt(0)},
		[]*big.Int{big.NewInt(4)},
		[]*big.Int{big.NewInt(-2)},
	)

	optios, err := decodeOptioBatch(out)

	require.NoError(t, err)
	require.Len(t, optios, 1)
	assert.Equal(t, bob.Hex(), optios[0].Author)
	assert.Equal(t, "Enter the forest", optios[0].Content)
	assert.Equal(t, valueobjects.NexusID(0), optios[0].Origin)
	assert.Equal(t, valueobjects.NexusID(4), optios[0].Destination)
	assert.Equal(t, int64(-2), optios[0].Score.Int64())
}

func TestDecodeOptioBatch_RejectsNegativeIDs(t *testing.T) {
	out := []interface{}{
		[]common.Address{bob},
		[]string{"x"},
		[]*big.Int{big.NewInt(-1)},
		[]*big.Int{big.NewInt(4)},
		[]*big.Int{big.NewInt(0)},
	}

	_, err := decodeOptioBatch(out)

	assert.Error(t, err)
}
