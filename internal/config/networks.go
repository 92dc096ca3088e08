package config

import "strings"

// Network is the immutable per-chain configuration. Loaded once at startup
// and never mutated afterwards.
type Network struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	ChainID      uint64 `json:"chain_id"`
	ChainIDHex   string `json:"chain_id_hex"`
	Contract     string `json:"contract"`
	RPCURL       string `json:"rpc_url"`
	Explorer     string `json:"explorer"`
	Symbol       string `json:"symbol"`
	Testnet      bool   `json:"is_testnet"`
	USDCAddress  string `json:"usdc_address"`
	USDCDecimals int32  `json:"usdc_decimals"`
}

// TxURL returns the block explorer URL for a transaction hash.
func (n Network) TxURL(txHash string) string {
	return n.Explorer + "/tx/" + txHash
}

// DefaultNetworks returns the built-in network table. Contract and USDC
// addresses can be overridden through the config file.
func DefaultNetworks() map[string]Network {
	nets := []Network{
		{
			Key:         "sepolia",
			Name:        "Ethereum Sepolia",
			ChainID:     11155111,
			ChainIDHex:  "0xaa36a7",
			Contract:    "0x027811E894b6388C514f909d54921a701337f467",
			RPCURL:      "https://ethereum-sepolia-rpc.publicnode.com",
			Explorer:    "https://sepolia.etherscan.io",
			Symbol:      "ETH",
			Testnet:     true,
			USDCAddress: "0x7474e771f6f3d8123aa4cDD8d3593866651a14e6",
		},
		{
			Key:         "base_sepolia",
			Name:        "Base Sepolia",
			ChainID:     84532,
			ChainIDHex:  "0x14a34",
			Contract:    "0xF0DCC0C62587804d9c49B075d24725A9a6eA2c6E",
			RPCURL:      "https://sepolia.base.org",
			Explorer:    "https://sepolia.basescan.org",
			Symbol:      "ETH",
			Testnet:     true,
			USDCAddress: "0x0f411ff500f88BB528b800C7116c28d80f8BbD44",
		},
		{
			Key:         "optimism_sepolia",
			Name:        "Optimism Sepolia",
			ChainID:     11155420,
			ChainIDHex:  "0xaa37dc",
			Contract:    "0x3E9334D16A57ADC0cAb7Cea24703aC819c1DAB8D",
			RPCURL:      "https://sepolia.optimism.io",
			Explorer:    "https://sepolia-optimism.etherscan.io",
			Symbol:      "ETH",
			Testnet:     true,
			USDCAddress: "0x0f411ff500f88BB528b800C7116c28d80f8BbD44",
		},
		{
			Key:         "arbitrum_sepolia",
			Name:        "Arbitrum Sepolia",
			ChainID:     421614,
			ChainIDHex:  "0x66eee",
			Contract:    "0xC5913aE49d6C52267B58824297EC36d36c27740d",
			RPCURL:      "https://sepolia-rollup.arbitrum.io/rpc",
			Explorer:    "https://sepolia.arbiscan.io",
			Symbol:      "ETH",
			Testnet:     true,
			USDCAddress: "0xd95480E52E671b87D6de3A3F05fbAb0E8526843F",
		},
		{
			Key:         "ethereum",
			Name:        "Ethereum",
			ChainID:     1,
			ChainIDHex:  "0x1",
			Contract:    "0x84f679497947f9186258Af929De2e760677D5949",
			RPCURL:      "https://eth.llamarpc.com",
			Explorer:    "https://etherscan.io",
			Symbol:      "ETH",
			USDCAddress: "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		},
		{
			Key:         "base",
			Name:        "Base",
			ChainID:     8453,
			ChainIDHex:  "0x2105",
			Contract:    "0x84f679497947f9186258Af929De2e760677D5949",
			RPCURL:      "https://mainnet.base.org",
			Explorer:    "https://basescan.org",
			Symbol:      "ETH",
			USDCAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		},
		{
			Key:         "optimism",
			Name:        "Optimism",
			ChainID:     10,
			ChainIDHex:  "0xa",
			Contract:    "0x84f679497947f9186258Af929De2e760677D5949",
			RPCURL:      "https://mainnet.optimism.io",
			Explorer:    "https://optimistic.etherscan.io",
			Symbol:      "ETH",
			USDCAddress: "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85",
		},
		{
			Key:         "arbitrum",
			Name:        "Arbitrum One",
			ChainID:     42161,
			ChainIDHex:  "0xa4b1",
			Contract:    "0x84f679497947f9186258Af929De2e760677D5949",
			RPCURL:      "https://arb1.arbitrum.io/rpc",
			Explorer:    "https://arbiscan.io",
			Symbol:      "ETH",
			USDCAddress: "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		},
	}

	out := make(map[string]Network, len(nets))
	for _, n := range nets {
		n.USDCDecimals = 6
		out[n.Key] = n
	}
	return out
}

// AvailableNetworks filters the table by network mode: test mode exposes
// testnets only, live mode exposes mainnets only.
func AvailableNetworks(networks map[string]Network, mode string) map[string]Network {
	testMode := strings.ToLower(mode) != "live"
	out := make(map[string]Network)
	for key, n := range networks {
		if n.Testnet == testMode {
			out[key] = n
		}
	}
	return out
}
