package wallet

import (
	"errors"
	"fmt"
	"sort"

	"github.com/bitcoinsv/bsvd/chaincfg"
	"github.com/bitcoinsv/bsvutil"
	ec "github.com/bsv-blockchain/go-sdk/primitives/ec"
	"github.com/bsv-blockchain/go-sdk/script"
	sdkTx "github.com/bsv-blockchain/go-sdk/transaction"
	"github.com/bsv-blockchain/go-sdk/transaction/template/p2pkh"
)

var (
	ErrInvalidAddress        = errors.New("invalid receiving address")
	ErrInsufficientFunds     = errors.New("unspent outputs do not cover the requested amount")
	ErrUnsupportedScriptType = errors.New("unspent output has a non-P2PKH locking script")
	ErrFailedToSign          = errors.New("failed to sign transaction")
)

// UnspentOutput is a spendable output at the faucet address, as reported by
// the node. Amounts are satoshis.
type UnspentOutput struct {
	TxID          string
	Vout          uint32
	LockingScript string
	Satoshis      uint64
	Confirmations int64
}

// Builder constructs signed payout transactions. The network fee is
// subtracted from the payout amount, so the recipient receives amount minus
// fee and the inputs only need to cover the amount itself plus the fee
// margin. Dust elision is deliberately disabled: the change output is always
// emitted, however small.
type Builder struct {
	privateKey    *ec.PrivateKey
	changeAddress string
	feeModel      SatoshisPerKilobyte
	opReturnData  []byte
	chainParams   *chaincfg.Params
}

// NewBuilder validates the faucet key and change address and returns a
// builder for the given network parameters.
func NewBuilder(privateKeyWif, changeAddress string, feeModel SatoshisPerKilobyte, opReturnData []byte, chainParams *chaincfg.Params) (*Builder, error) {
	wif, err := bsvutil.DecodeWIF(privateKeyWif)
	if err != nil {
		return nil, fmt.Errorf("failed to decode faucet private key: %w", err)
	}

	privateKey, _ := ec.PrivateKeyFromBytes(wif.PrivKey.Serialize())

	err = validateAddress(changeAddress, chainParams)
	if err != nil {
		return nil, fmt.Errorf("invalid change address: %w", err)
	}

	return &Builder{
		privateKey:    privateKey,
		changeAddress: changeAddress,
		feeModel:      feeModel,
		opReturnData:  opReturnData,
		chainParams:   chainParams,
	}, nil
}

// BuildPayout selects unspent outputs and builds a signed transaction paying
// amount minus fee to destination, with the remainder returned to the change
// address. Outputs with more confirmations are spent first.
func (b *Builder) BuildPayout(destination string, amount uint64, utxos []UnspentOutput) (*sdkTx.Transaction, error) {
	err := validateAddress(destination, b.chainParams)
	if err != nil {
		return nil, err
	}

	selected, totalIn, fee, err := b.selectOutputs(amount, utxos)
	if err != nil {
		return nil, err
	}

	if fee >= amount {
		return nil, errors.Join(ErrInsufficientFunds, fmt.Errorf("payout of %d satoshis does not cover the %d satoshi fee", amount, fee))
	}

	tx := sdkTx.NewTransaction()

	for _, utxo := range selected {
		input, err := sdkTx.NewUTXO(utxo.TxID, utxo.Vout, utxo.LockingScript, utxo.Satoshis)
		if err != nil {
			return nil, fmt.Errorf("failed to create input from unspent output %s:%d: %w", utxo.TxID, utxo.Vout, err)
		}

		err = tx.AddInputsFromUTXOs(input)
		if err != nil {
			return nil, fmt.Errorf("failed to add input: %w", err)
		}
	}

	err = tx.PayToAddress(destination, amount-fee)
	if err != nil {
		return nil, errors.Join(ErrInvalidAddress, err)
	}

	change := totalIn - amount
	if change > 0 {
		err = tx.PayToAddress(b.changeAddress, change)
		if err != nil {
			return nil, fmt.Errorf("failed to add change output: %w", err)
		}
	}

	if len(b.opReturnData) > 0 {
		err = tx.AddOpReturnOutput(b.opReturnData)
		if err != nil {
			return nil, fmt.Errorf("failed to add data output: %w", err)
		}
	}

	err = b.signAllInputs(tx, selected)
	if err != nil {
		return nil, err
	}

	return tx, nil
}

// selectOutputs greedily accumulates outputs, maturest first, until they
// cover the amount plus the estimated fee. No attempt is made to minimize
// the input count.
func (b *Builder) selectOutputs(amount uint64, utxos []UnspentOutput) ([]UnspentOutput, uint64, uint64, error) {
	ordered := make([]UnspentOutput, len(utxos))
	copy(ordered, utxos)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Confirmations > ordered[j].Confirmations
	})

	var selected []UnspentOutput
	var totalIn uint64
	var fee uint64

	for _, utxo := range ordered {
		selected = append(selected, utxo)
		totalIn += utxo.Satoshis

		fee = b.feeModel.ComputeFeeBasedOnSize(estimatePayoutSize(len(selected), len(b.opReturnData)))
		if totalIn >= amount+fee {
			return selected, totalIn, fee, nil
		}
	}

	return nil, 0, 0, errors.Join(ErrInsufficientFunds, fmt.Errorf("requested: %d satoshis plus %d fee, available: %d", amount, fee, totalIn))
}

// signAllInputs signs every input with the faucet key. Unspendable script
// types are rejected rather than left unsigned.
func (b *Builder) signAllInputs(tx *sdkTx.Transaction, selected []UnspentOutput) error {
	for _, utxo := range selected {
		lockingScript, err := script.NewFromHex(utxo.LockingScript)
		if err != nil {
			return errors.Join(ErrUnsupportedScriptType, err)
		}

		if !lockingScript.IsP2PKH() {
			return errors.Join(ErrUnsupportedScriptType, fmt.Errorf("output %s:%d", utxo.TxID, utxo.Vout))
		}
	}

	unlockingScriptTemplate, err := p2pkh.Unlock(b.privateKey, nil)
	if err != nil {
		return errors.Join(ErrFailedToSign, err)
	}

	for _, input := range tx.Inputs {
		input.UnlockingScriptTemplate = unlockingScriptTemplate
	}

	err = tx.Sign()
	if err != nil {
		return errors.Join(ErrFailedToSign, err)
	}

	return nil
}

func validateAddress(address string, chainParams *chaincfg.Params) error {
	decoded, err := bsvutil.DecodeAddress(address, chainParams)
	if err != nil {
		return errors.Join(ErrInvalidAddress, err)
	}

	if !decoded.IsForNet(chainParams) {
		return errors.Join(ErrInvalidAddress, fmt.Errorf("address %s is not valid for the configured network", address))
	}

	if _, ok := decoded.(*bsvutil.AddressPubKeyHash); !ok {
		return errors.Join(ErrInvalidAddress, fmt.Errorf("address %s is not a P2PKH address", address))
	}

	return nil
}
