package events

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"paygate/internal/model"
)

const (
	payerAddr    = "0x5B38Da6a701c568545dCfcB03FcB875f56beddC4"
	merchantAddr = "0xAb8483F64d9C6d1EcF9b849Ae677dD3315835cb2"
	tokenAddr    = "0x0f411ff500f88BB528b800C7116c28d80f8BbD44"
)

// addrTopic left-pads an address to a 32-byte indexed topic.
func addrTopic(addr string) string {
	return common.BytesToHash(common.HexToAddress(addr).Bytes()).Hex()
}

func dataHex(words ...*big.Int) string {
	buf := make([]byte, 0, len(words)*32)
	for _, w := range words {
		buf = append(buf, common.BigToHash(w).Bytes()...)
	}
	return hexutil.Encode(buf)
}

func TestTopicHashes(t *testing.T) {
	if got := TopicPaymentReceived.Hex(); got != "0x4aa351061f13d3dff9e0f6cab4811de6a51a2f94e424b21ce31914f1e99c17bc" {
		t.Fatalf("PaymentReceived topic mismatch: %s", got)
	}
	if got := TopicTokenPaymentReceived.Hex(); got != "0x0a7e11d6b5194b35bf3d4e463e2cb08dd9681b79fe6d4a1ff9725977a7da38d7" {
		t.Fatalf("TokenPaymentReceived topic mismatch: %s", got)
	}
}

func TestDecodeNativePayment(t *testing.T) {
	// amount deliberately above the int64 range
	amount, _ := new(big.Int).SetString("340000000000000000000", 10)
	merchantAmount, _ := new(big.Int).SetString("333200000000000000000", 10)
	fee := new(big.Int).Sub(amount, merchantAmount)

	log := model.Log{
		Topics: []string{
			TopicPaymentReceived.Hex(),
			addrTopic(payerAddr),
			addrTopic(merchantAddr),
		},
		Data: dataHex(big.NewInt(42), amount, merchantAmount, fee, big.NewInt(1700000000)),
	}

	event := NewDecoder().DecodeLog(log)
	if event == nil {
		t.Fatalf("expected decoded event, got nil")
	}
	if event.Type != model.PaymentNative {
		t.Fatalf("type mismatch: %s", event.Type)
	}
	if event.Payer != strings.ToLower(payerAddr) {
		t.Fatalf("payer mismatch: %s", event.Payer)
	}
	if event.Merchant != strings.ToLower(merchantAddr) {
		t.Fatalf("merchant mismatch: %s", event.Merchant)
	}
	if event.Token != "" {
		t.Fatalf("native event should not carry a token address")
	}
	if event.OrderID.Int64() != 42 {
		t.Fatalf("order id mismatch: %s", event.OrderID)
	}
	if event.Amount.Cmp(amount) != 0 {
		t.Fatalf("amount mismatch: %s != %s", event.Amount, amount)
	}
	if event.MerchantAmount.Cmp(merchantAmount) != 0 {
		t.Fatalf("merchant amount mismatch: %s", event.MerchantAmount)
	}
	if event.PlatformFee.Cmp(fee) != 0 {
		t.Fatalf("platform fee mismatch: %s", event.PlatformFee)
	}
	if event.Timestamp.Int64() != 1700000000 {
		t.Fatalf("timestamp mismatch: %s", event.Timestamp)
	}
}

func TestDecodeTokenPayment(t *testing.T) {
	log := model.Log{
		Topics: []string{
			TopicTokenPaymentReceived.Hex(),
			addrTopic(payerAddr),
			addrTopic(merchantAddr),
			addrTopic(tokenAddr),
		},
		Data: dataHex(big.NewInt(7), big.NewInt(51000000), big.NewInt(49980000), big.NewInt(1020000), big.NewInt(1700000100)),
	}

	event := NewDecoder().DecodeLog(log)
	if event == nil {
		t.Fatalf("expected decoded event, got nil")
	}
	if event.Type != model.PaymentToken {
		t.Fatalf("type mismatch: %s", event.Type)
	}
	if event.Token != strings.ToLower(tokenAddr) {
		t.Fatalf("token mismatch: %s", event.Token)
	}
	if event.OrderID.Int64() != 7 {
		t.Fatalf("order id mismatch: %s", event.OrderID)
	}
	if event.Amount.Int64() != 51000000 {
		t.Fatalf("amount mismatch: %s", event.Amount)
	}
}

func TestDecodeTopicCaseInsensitive(t *testing.T) {
	log := model.Log{
		Topics: []string{
			strings.ToUpper(TopicPaymentReceived.Hex()[2:]),
			addrTopic(payerAddr),
			addrTopic(merchantAddr),
		},
		Data: dataHex(big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5)),
	}
	log.Topics[0] = "0x" + log.Topics[0]

	if NewDecoder().DecodeLog(log) == nil {
		t.Fatalf("uppercase topic0 should still decode")
	}
}

func TestDecodeRejectsMalformedLogs(t *testing.T) {
	fullData := dataHex(big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4), big.NewInt(5))
	shortData := dataHex(big.NewInt(1), big.NewInt(2), big.NewInt(3), big.NewInt(4))

	cases := []struct {
		name string
		log  model.Log
	}{
		{"no topics", model.Log{Data: fullData}},
		{"unknown topic0", model.Log{
			Topics: []string{addrTopic(payerAddr), addrTopic(payerAddr), addrTopic(merchantAddr)},
			Data:   fullData,
		}},
		{"native missing merchant topic", model.Log{
			Topics: []string{TopicPaymentReceived.Hex(), addrTopic(payerAddr)},
			Data:   fullData,
		}},
		{"native short data", model.Log{
			Topics: []string{TopicPaymentReceived.Hex(), addrTopic(payerAddr), addrTopic(merchantAddr)},
			Data:   shortData,
		}},
		{"native malformed data", model.Log{
			Topics: []string{TopicPaymentReceived.Hex(), addrTopic(payerAddr), addrTopic(merchantAddr)},
			Data:   "0xzz",
		}},
		{"token missing token topic", model.Log{
			Topics: []string{TopicTokenPaymentReceived.Hex(), addrTopic(payerAddr), addrTopic(merchantAddr)},
			Data:   fullData,
		}},
		{"token short data", model.Log{
			Topics: []string{TopicTokenPaymentReceived.Hex(), addrTopic(payerAddr), addrTopic(merchantAddr), addrTopic(tokenAddr)},
			Data:   shortData,
		}},
	}

	decoder := NewDecoder()
	for _, tc := range cases {
		if event := decoder.DecodeLog(tc.log); event != nil {
			t.Fatalf("%s: expected nil, got %+v", tc.name, event)
		}
	}
}

func TestDecodeAcceptsExtraDataWords(t *testing.T) {
	// Future contract versions may append words; the known prefix decodes.
	log := model.Log{
		Topics: []string{TopicPaymentReceived.Hex(), addrTopic(payerAddr), addrTopic(merchantAddr)},
		Data:   dataHex(big.NewInt(9), big.NewInt(100), big.NewInt(98), big.NewInt(2), big.NewInt(1700000000), big.NewInt(777)),
	}

	event := NewDecoder().DecodeLog(log)
	if event == nil {
		t.Fatalf("expected decoded event, got nil")
	}
	if event.OrderID.Int64() != 9 {
		t.Fatalf("order id mismatch: %s", event.OrderID)
	}
}
