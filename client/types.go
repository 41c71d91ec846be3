package client

// StateInfo mirrors the token.state result
type StateInfo struct {
	Name         string `json:"name"`
	Symbol       string `json:"symbol"`
	Decimals     uint8  `json:"decimals"`
	TotalSupply  string `json:"total_supply"`
	Owner        string `json:"owner"`
	FeeCollector string `json:"fee_collector"`
	Frozen       bool   `json:"frozen"`
}

// OpInfo mirrors the result of every mutating method
type OpInfo struct {
	Ok     bool   `json:"ok"`
	Caller string `json:"caller,omitempty"`
	Error  string `json:"error,omitempty"`
}

type addressInfo struct {
	Address string `json:"address"`
}

type allowanceInfo struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender"`
}

type amountInfo struct {
	Amount string `json:"amount"`
}

type nonceInfo struct {
	Nonce uint64 `json:"nonce"`
}
