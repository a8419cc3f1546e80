package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/liqpass/liqpass-backend/internal/config"
	"github.com/liqpass/liqpass-backend/internal/models"
)

// transferEventSig is keccak256("Transfer(address,address,uint256)"), the
// topic every ERC-20 Transfer log carries.
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// Rejection reasons recorded when a proof fails on-chain verification.
const (
	ReasonTxNotFound         = "transaction not found on chain"
	ReasonTxReverted         = "transaction reverted"
	ReasonNoMatchingTransfer = "no matching USDC transfer in transaction"
	ReasonOrderSettled       = "order already settled by another payment"
)

// TransferCheck is the outcome of verifying a proof against the chain.
// Exactly one of Confirmed / Rejected is set when the check is decisive;
// neither means the transfer needs more confirmations (or has not landed yet)
// and should be rechecked later.
type TransferCheck struct {
	Confirmed   bool
	Rejected    bool
	Seen        bool
	Reason      string
	BlockNumber *uint64
}

// Client verifies declared USDC transfers against an EVM chain.
type Client struct {
	eth           *ethclient.Client
	chainID       int64
	confirmations uint64
	contracts     map[int64]common.Address
	logger        *zap.Logger
}

// NewClient dials the configured RPC endpoint and checks it serves the
// expected chain.
func NewClient(ctx context.Context, cfg config.ChainConfig, logger *zap.Logger) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial chain RPC %s: %w", cfg.RPCURL, err)
	}

	remoteID, err := eth.ChainID(ctx)
	if err != nil {
		eth.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	if remoteID.Int64() != cfg.ChainID {
		eth.Close()
		return nil, fmt.Errorf("RPC endpoint serves chain %d, expected %d", remoteID.Int64(), cfg.ChainID)
	}

	contracts := make(map[int64]common.Address, len(cfg.USDCContracts))
	for id, addr := range cfg.USDCContracts {
		contracts[id] = common.HexToAddress(addr)
	}

	logger.Info("Connected to chain RPC",
		zap.String("rpc_url", cfg.RPCURL),
		zap.Int64("chain_id", cfg.ChainID),
		zap.Uint64("confirmations", cfg.Confirmations),
	)

	return &Client{
		eth:           eth,
		chainID:       cfg.ChainID,
		confirmations: cfg.Confirmations,
		contracts:     contracts,
		logger:        logger,
	}, nil
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	c.eth.Close()
}

// VerifyTransfer checks a declared transfer against the chain: the
// transaction must exist, have succeeded, contain a USDC Transfer log that
// matches the proof's sender, recipient and amount exactly, and sit at least
// the configured confirmation depth below the head. An error return means
// the chain could not be consulted and the check should be retried.
func (c *Client) VerifyTransfer(ctx context.Context, proof *models.PaymentProof) (*TransferCheck, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(proof.TxHash))
	if err != nil {
		if err == ethereum.NotFound {
			// Not landed yet, or never will. The watcher decides when to
			// give up based on proof age.
			return &TransferCheck{}, nil
		}
		return nil, fmt.Errorf("failed to fetch receipt for %s: %w", proof.TxHash, err)
	}

	if receipt.Status != types.ReceiptStatusSuccessful {
		return &TransferCheck{Rejected: true, Reason: ReasonTxReverted}, nil
	}

	if !c.matchingTransfer(receipt, proof) {
		return &TransferCheck{Rejected: true, Reason: ReasonNoMatchingTransfer}, nil
	}

	head, err := c.eth.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch head block: %w", err)
	}

	mined := receipt.BlockNumber.Uint64()
	if head < mined || head-mined+1 < c.confirmations {
		c.logger.Debug("Transfer awaiting confirmations",
			zap.String("tx_hash", proof.TxHash),
			zap.Uint64("mined_at", mined),
			zap.Uint64("head", head),
		)
		return &TransferCheck{Seen: true}, nil
	}

	return &TransferCheck{Confirmed: true, Seen: true, BlockNumber: &mined}, nil
}

// matchingTransfer scans the receipt logs for a Transfer event emitted by the
// USDC contract with the exact sender, recipient and amount the proof claims.
func (c *Client) matchingTransfer(receipt *types.Receipt, proof *models.PaymentProof) bool {
	contract, ok := c.contracts[proof.ChainID]
	if !ok {
		return false
	}
	wantFrom := common.HexToAddress(proof.FromAddr)
	wantTo := common.HexToAddress(proof.ToAddr)
	wantAmount := decimalToBig(proof.AmountMinUnit)
	if wantAmount == nil {
		return false
	}

	for _, log := range receipt.Logs {
		if log.Address != contract {
			continue
		}
		if len(log.Topics) != 3 || log.Topics[0] != transferEventSig {
			continue
		}
		from := common.BytesToAddress(log.Topics[1].Bytes())
		to := common.BytesToAddress(log.Topics[2].Bytes())
		if from != wantFrom || to != wantTo {
			continue
		}
		amount := new(big.Int).SetBytes(log.Data)
		if amount.Cmp(wantAmount) == 0 {
			return true
		}
	}
	return false
}

func decimalToBig(d decimal.Decimal) *big.Int {
	if d.Exponent() < 0 {
		return nil
	}
	v, ok := new(big.Int).SetString(strings.TrimSpace(d.String()), 10)
	if !ok {
		return nil
	}
	return v
}
