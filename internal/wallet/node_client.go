package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"

	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/ordishs/go-bitcoin"
)

var ErrFailedToGetUnspentOutputs = errors.New("failed to list unspent outputs")

// UnspentOutputLister supplies the current UTXO snapshot for an address.
type UnspentOutputLister interface {
	ListUnspent(ctx context.Context, address string) ([]UnspentOutput, error)
}

// Submitter broadcasts a signed transaction and returns its id.
type Submitter interface {
	SubmitTransaction(ctx context.Context, tx *sdkTx.Transaction) (string, error)
}

// NodeClient talks to a bitcoin node via RPC. It serves both as the UTXO
// lister and as the production transaction submitter.
type NodeClient struct {
	node *bitcoin.Bitcoind
}

// NewNodeClient creates a connection to a bitcoin node via RPC.
func NewNodeClient(host string, port int, user, passwd string, useSSL bool) (*NodeClient, error) {
	node, err := bitcoin.New(host, port, user, passwd, useSSL)
	if err != nil {
		return nil, err
	}

	return &NodeClient{node: node}, nil
}

// ListUnspent returns all confirmed and unconfirmed outputs at the address.
func (n *NodeClient) ListUnspent(_ context.Context, address string) ([]UnspentOutput, error) {
	data, err := n.node.ListUnspent([]string{address})
	if err != nil {
		return nil, errors.Join(ErrFailedToGetUnspentOutputs, err)
	}

	result := make([]UnspentOutput, len(data))
	for index, utxo := range data {
		result[index] = UnspentOutput{
			TxID:          utxo.TXID,
			Vout:          utxo.Vout,
			LockingScript: utxo.ScriptPubKey,
			Satoshis:      uint64(math.Round(utxo.Amount * 1e8)),
			Confirmations: int64(utxo.Confirmations),
		}
	}

	return result, nil
}

// SubmitTransaction broadcasts the transaction to the network via the node.
func (n *NodeClient) SubmitTransaction(_ context.Context, tx *sdkTx.Transaction) (string, error) {
	txID, err := n.node.SendRawTransaction(hex.EncodeToString(tx.Bytes()))
	if err != nil {
		return "", fmt.Errorf("failed to send raw transaction: %w", err)
	}

	return txID, nil
}
