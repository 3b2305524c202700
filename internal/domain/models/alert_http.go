package models

// TradingViewAlert is the wire form of a strategy alert. Every scalar is a
// JSON string; numeric fields carry decimal literals and are converted by
// the signal parser. Unknown fields are ignored.
type TradingViewAlert struct {
	General    *AlertGeneral    `json:"general" validate:"required"`
	SymbolData *AlertSymbolData `json:"symbol_data" validate:"required"`
	Currency   *AlertCurrency   `json:"currency" validate:"required"`
	Position   *AlertPosition   `json:"position" validate:"required"`
	Order      *AlertOrder      `json:"order" validate:"required"`
	Market     *AlertMarket     `json:"market" validate:"required"`
}

type AlertGeneral struct {
	Strategy string  `json:"strategy"`
	Ticker   string  `json:"ticker" validate:"required"`
	Exchange string  `json:"exchange" validate:"required"`
	Interval string  `json:"interval" validate:"required"`
	Time     string  `json:"time" validate:"required,iso8601"`
	TimeNow  string  `json:"timenow" validate:"required,iso8601"`
	Secret   *string `json:"secret"`
	Leverage string  `json:"leverage" validate:"omitempty,leverage"`
}

type AlertSymbolData struct {
	Open   string `json:"open" validate:"required,decimal"`
	Close  string `json:"close" validate:"required,decimal"`
	High   string `json:"high" validate:"required,decimal"`
	Low    string `json:"low" validate:"required,decimal"`
	Volume string `json:"volume" validate:"required,decimal"`
}

type AlertCurrency struct {
	Quote string `json:"quote" validate:"required"`
	Base  string `json:"base" validate:"required"`
}

type AlertPosition struct {
	PositionSize string `json:"position_size" validate:"required,decimal"`
}

type AlertOrder struct {
	Action       string  `json:"action" validate:"required,oneof=buy sell close_long close_short"`
	Contracts    string  `json:"contracts" validate:"required,decimal"`
	Price        string  `json:"price" validate:"required,decimal"`
	ID           string  `json:"id" validate:"required"`
	Comment      *string `json:"comment"`
	AlertMessage *string `json:"alert_message"`
}

type AlertMarket struct {
	Position             string `json:"position" validate:"required,oneof=long short flat"`
	PositionSize         string `json:"position_size" validate:"required,decimal"`
	PreviousPosition     string `json:"previous_position" validate:"required,oneof=long short flat"`
	PreviousPositionSize string `json:"previous_position_size" validate:"required,decimal"`
}

// Admin endpoint requests.

type OrdersQuery struct {
	Limit    int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Decision string `query:"status" json:"status" validate:"omitempty,oneof=accepted ignored rejected failed denied invalid duplicate"`
	Symbol   string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
}

type TelegramSettingsRequest struct {
	Enabled  *bool   `json:"enabled"`
	BotToken *string `json:"bot_token" validate:"omitempty,min=10"`
	ChatID   *string `json:"chat_id" validate:"omitempty,min=1"`
}
