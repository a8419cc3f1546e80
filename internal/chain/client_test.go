package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/models"
)

var (
	usdcContract = common.HexToAddress("0xaf88d065e77c8cC2239327C5EDb3A432268e5831")
	senderAddr   = common.HexToAddress("0x4444444444444444444444444444444444444444")
	vaultAddr    = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func transferLog(token, from, to common.Address, amount int64) *types.Log {
	return &types.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventSig,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(big.NewInt(amount).Bytes(), 32),
	}
}

func testClient() *Client {
	return &Client{
		chainID:       42161,
		confirmations: 12,
		contracts:     map[int64]common.Address{42161: usdcContract},
		logger:        zap.NewNop(),
	}
}

func testProof(amountMinUnit int64) *models.PaymentProof {
	return &models.PaymentProof{
		ChainID:       42161,
		Token:         usdcContract.Hex(),
		FromAddr:      senderAddr.Hex(),
		ToAddr:        vaultAddr.Hex(),
		AmountMinUnit: decimal.NewFromInt(amountMinUnit),
	}
}

func TestMatchingTransferExactMatch(t *testing.T) {
	client := testClient()
	receipt := &types.Receipt{
		Logs: []*types.Log{
			transferLog(usdcContract, senderAddr, vaultAddr, 30_000_000),
		},
	}
	require.True(t, client.matchingTransfer(receipt, testProof(30_000_000)))
}

func TestMatchingTransferMismatches(t *testing.T) {
	client := testClient()
	proof := testProof(30_000_000)

	// Wrong amount.
	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(usdcContract, senderAddr, vaultAddr, 29_999_999),
	}}
	require.False(t, client.matchingTransfer(receipt, proof))

	// Wrong recipient.
	receipt = &types.Receipt{Logs: []*types.Log{
		transferLog(usdcContract, senderAddr, senderAddr, 30_000_000),
	}}
	require.False(t, client.matchingTransfer(receipt, proof))

	// Transfer emitted by a different contract.
	receipt = &types.Receipt{Logs: []*types.Log{
		transferLog(senderAddr, senderAddr, vaultAddr, 30_000_000),
	}}
	require.False(t, client.matchingTransfer(receipt, proof))

	// Empty receipt.
	require.False(t, client.matchingTransfer(&types.Receipt{}, proof))
}

func TestMatchingTransferScansAllLogs(t *testing.T) {
	client := testClient()
	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(senderAddr, senderAddr, vaultAddr, 1),
		transferLog(usdcContract, vaultAddr, senderAddr, 5),
		transferLog(usdcContract, senderAddr, vaultAddr, 30_000_000),
	}}
	require.True(t, client.matchingTransfer(receipt, testProof(30_000_000)))
}

func TestMatchingTransferUnknownChain(t *testing.T) {
	client := testClient()
	proof := testProof(30_000_000)
	proof.ChainID = 1
	receipt := &types.Receipt{Logs: []*types.Log{
		transferLog(usdcContract, senderAddr, vaultAddr, 30_000_000),
	}}
	require.False(t, client.matchingTransfer(receipt, proof))
}

func TestDecimalToBig(t *testing.T) {
	v := decimalToBig(decimal.NewFromInt(30_000_000))
	require.NotNil(t, v)
	require.Equal(t, int64(30_000_000), v.Int64())

	// Fractional minimum units are never valid.
	require.Nil(t, decimalToBig(decimal.RequireFromString("1.5")))
}
