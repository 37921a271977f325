package types

import (
	"time"

	"github.com/moznion/go-optional"
)

// Tick is one timestamped market-data sample. A finite, timestamp-ordered
// sequence of ticks drives one evaluation run.
type Tick struct {
	Time   time.Time               `csv:"time" json:"time"`
	Symbol string                  `csv:"symbol" json:"symbol"`
	Price  float64                 `csv:"price" json:"price"`
	Volume optional.Option[float64] `csv:"volume" json:"volume,omitempty"`
}
