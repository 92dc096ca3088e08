package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"paygate/internal/model"
)

// Merchant contract event signatures. Topic hashes are derived at init and
// pinned by tests against the on-chain values.
const (
	paymentReceivedSig      = "PaymentReceived(address,address,uint256,uint256,uint256,uint256,uint256)"
	tokenPaymentReceivedSig = "TokenPaymentReceived(address,address,address,uint256,uint256,uint256,uint256,uint256)"

	// data words: orderId, amount, merchantAmount, platformFee, timestamp
	dataWords = 5
	wordSize  = 32
)

var (
	// TopicPaymentReceived is the topic0 of the native-coin payment event.
	TopicPaymentReceived = crypto.Keccak256Hash([]byte(paymentReceivedSig))
	// TopicTokenPaymentReceived is the topic0 of the ERC-20 payment event.
	TopicTokenPaymentReceived = crypto.Keccak256Hash([]byte(tokenPaymentReceivedSig))
)

// Decoder decodes merchant-contract payment logs.
type Decoder struct {
	nativeTopic string
	tokenTopic  string
}

// NewDecoder builds a payment event decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		nativeTopic: strings.ToLower(TopicPaymentReceived.Hex()),
		tokenTopic:  strings.ToLower(TopicTokenPaymentReceived.Hex()),
	}
}

// DecodeLog converts a receipt log into a PaymentEvent. It returns nil when
// topic0 is not a known payment event or the log shape is short; an
// unmatched log is an expected outcome, not an error.
func (d *Decoder) DecodeLog(log model.Log) *model.PaymentEvent {
	if len(log.Topics) == 0 {
		return nil
	}

	switch strings.ToLower(log.Topics[0]) {
	case d.nativeTopic:
		return d.decodeNative(log)
	case d.tokenTopic:
		return d.decodeToken(log)
	default:
		return nil
	}
}

// decodeNative handles PaymentReceived: topics [sig, payer, merchant],
// data [orderId, amount, merchantAmount, platformFee, timestamp].
func (d *Decoder) decodeNative(log model.Log) *model.PaymentEvent {
	if len(log.Topics) < 3 {
		return nil
	}
	words, ok := dataChunks(log.Data)
	if !ok {
		return nil
	}

	payer, ok := addressFromTopic(log.Topics[1])
	if !ok {
		return nil
	}
	merchant, ok := addressFromTopic(log.Topics[2])
	if !ok {
		return nil
	}

	return &model.PaymentEvent{
		Type:           model.PaymentNative,
		Payer:          payer,
		Merchant:       merchant,
		OrderID:        words[0],
		Amount:         words[1],
		MerchantAmount: words[2],
		PlatformFee:    words[3],
		Timestamp:      words[4],
	}
}

// decodeToken handles TokenPaymentReceived: topics [sig, payer, merchant,
// token], same data tail as the native event.
func (d *Decoder) decodeToken(log model.Log) *model.PaymentEvent {
	if len(log.Topics) < 4 {
		return nil
	}
	words, ok := dataChunks(log.Data)
	if !ok {
		return nil
	}

	payer, ok := addressFromTopic(log.Topics[1])
	if !ok {
		return nil
	}
	merchant, ok := addressFromTopic(log.Topics[2])
	if !ok {
		return nil
	}
	token, ok := addressFromTopic(log.Topics[3])
	if !ok {
		return nil
	}

	return &model.PaymentEvent{
		Type:           model.PaymentToken,
		Payer:          payer,
		Merchant:       merchant,
		Token:          token,
		OrderID:        words[0],
		Amount:         words[1],
		MerchantAmount: words[2],
		PlatformFee:    words[3],
		Timestamp:      words[4],
	}
}

// addressFromTopic recovers an address from a 32-byte indexed topic by
// taking its low 20 bytes. The result is lowercase hex.
func addressFromTopic(topic string) (string, bool) {
	raw, err := hexutil.Decode(topic)
	if err != nil || len(raw) != wordSize {
		return "", false
	}
	return strings.ToLower(common.BytesToAddress(raw[wordSize-common.AddressLength:]).Hex()), true
}

// dataChunks splits the non-indexed data blob into 32-byte big integers.
// Values can exceed 64-bit range (wei amounts), so big.Int from raw bytes
// is mandatory.
func dataChunks(data string) ([]*big.Int, bool) {
	raw, err := hexutil.Decode(data)
	if err != nil || len(raw) < dataWords*wordSize {
		return nil, false
	}

	words := make([]*big.Int, dataWords)
	for i := 0; i < dataWords; i++ {
		words[i] = new(big.Int).SetBytes(raw[i*wordSize : (i+1)*wordSize])
	}
	return words, true
}
