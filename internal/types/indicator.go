package types

// IndicatorType identifies a registered indicator implementation.
type IndicatorType string

const (
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeStochastic     IndicatorType = "stochastic"
)
