package hyperliquid

// Field order matters: the action hash is computed over the msgpack
// encoding of these structs.

type orderAction struct {
	Type     string      `json:"type"`
	Orders   []orderWire `json:"orders"`
	Grouping string      `json:"grouping"`
}

type orderWire struct {
	Asset      int           `json:"a"`
	IsBuy      bool          `json:"b"`
	LimitPx    string        `json:"p"`
	Size       string        `json:"s"`
	ReduceOnly bool          `json:"r"`
	OrderType  orderTypeWire `json:"t"`
	Cloid      string        `json:"c,omitempty"`
}

type orderTypeWire struct {
	Limit limitWire `json:"limit"`
}

type limitWire struct {
	Tif string `json:"tif"`
}

type updateLeverageAction struct {
	Type     string `json:"type"`
	Asset    int    `json:"asset"`
	IsCross  bool   `json:"isCross"`
	Leverage int    `json:"leverage"`
}

// exchangeRequest is the body of POST /exchange and of a ws "action" post.
type exchangeRequest struct {
	Action       any       `json:"action"`
	Nonce        uint64    `json:"nonce"`
	Signature    Signature `json:"signature"`
	VaultAddress *string   `json:"vaultAddress"`
}

type infoRequest struct {
	Type string `json:"type"`
}

type assetMeta struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	MaxLeverage int    `json:"maxLeverage"`
}

type metaResponse struct {
	Universe []assetMeta `json:"universe"`
}
