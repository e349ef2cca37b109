package whistlevault

// UnsignedTx is a fully-formed contract call lacking only a signature. It is
// returned to the caller so their wallet can sign and broadcast it; this
// system never holds a private key.
type UnsignedTx struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Nonce    uint64 `json:"nonce"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
	Value    string `json:"value"`
	Data     string `json:"data"`
	ChainID  string `json:"chainId"`
}

// LedgerReport is what the contract's getReport call returns.
type LedgerReport struct {
	ContentID string `json:"ipfs_hash"`
	Reporter  string `json:"reporter"`
	Resolved  bool   `json:"resolved"`
}
