package model

import (
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Receipt is the raw transaction receipt as returned by eth_getTransactionReceipt.
// All numeric fields stay hex-encoded strings until a caller needs them.
type Receipt struct {
	Status      string `json:"status"`
	From        string `json:"from"`
	To          string `json:"to"`
	BlockNumber string `json:"blockNumber"`
	TxHash      string `json:"transactionHash"`
	Logs        []Log  `json:"logs"`
}

// Log is a single receipt log entry.
type Log struct {
	Address string   `json:"address"`
	Topics  []string `json:"topics"`
	Data    string   `json:"data"`
}

// Succeeded reports whether the transaction executed successfully.
func (r *Receipt) Succeeded() bool {
	return strings.EqualFold(r.Status, "0x1")
}

// BlockNumberUint parses the hex block number, returning 0 on malformed input.
func (r *Receipt) BlockNumberUint() uint64 {
	n, err := hexutil.DecodeUint64(r.BlockNumber)
	if err != nil {
		return 0
	}
	return n
}
