package wallet

import (
	"math"

	sdkUtil "github.com/bsv-blockchain/go-sdk/util"
)

const (
	// Serialized size of one P2PKH input: outpoint, sequence, script length
	// and unlocking script.
	p2pkhInputSize = 40 + 1 + 107
	// Serialized size of one P2PKH output: satoshis, script length and
	// locking script.
	p2pkhOutputSize = 8 + 1 + 25
)

// SatoshisPerKilobyte is the fee model: fee is proportional to the
// transaction size, with a minimum of 1 satoshi.
type SatoshisPerKilobyte struct {
	Satoshis uint64
}

func DefaultSatoshisPerKilobyte() SatoshisPerKilobyte {
	return SatoshisPerKilobyte{Satoshis: 1}
}

// ComputeFeeBasedOnSize calculates the fee for a transaction of txSize bytes.
func (s SatoshisPerKilobyte) ComputeFeeBasedOnSize(txSize uint64) uint64 {
	fee := float64(txSize) * float64(s.Satoshis) / 1000

	feeRounded := uint64(math.Ceil(fee))
	if feeRounded < 1 {
		feeRounded = 1
	}

	return feeRounded
}

// estimatePayoutSize returns the serialized size of a payout transaction with
// numInputs P2PKH inputs, a P2PKH payment output, a P2PKH change output and,
// when opReturnLen > 0, a zero-satoshi data output.
func estimatePayoutSize(numInputs int, opReturnLen int) uint64 {
	numOutputs := 2
	if opReturnLen > 0 {
		numOutputs++
	}

	size := 4 // version
	size += sdkUtil.VarInt(uint64(numInputs)).Length()
	size += numInputs * p2pkhInputSize
	size += sdkUtil.VarInt(uint64(numOutputs)).Length()
	size += 2 * p2pkhOutputSize

	if opReturnLen > 0 {
		// OP_FALSE OP_RETURN plus the pushed payload
		scriptLen := 2 + opReturnLen + sdkUtil.VarInt(uint64(opReturnLen)).Length()
		size += 8 + sdkUtil.VarInt(uint64(scriptLen)).Length() + scriptLen
	}

	size += 4 // lock time

	return uint64(size)
}
