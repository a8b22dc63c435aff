package symbol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	assert.Equal(t, Symbol{Base: "SOL", Quote: "USDT"}, Parse("solusdt"))
	assert.Equal(t, Symbol{Base: "SOL", Quote: "USDT"}, Parse("SOL/USDT"))
	assert.Equal(t, Symbol{Base: "ETH", Quote: "USDT"}, Parse("eth/usdt:usdt"))
	assert.Equal(t, Symbol{Base: "SOL", Quote: "FDUSD"}, Parse("SOLFDUSD"))
	assert.Equal(t, Symbol{Base: "SOL", Quote: "EUR"}, ParseWithQuote("SOLEUR", "eur"))
	assert.False(t, IsValid("USDT"))
	assert.Equal(t, "", Normalize("???"))
}

func TestExchange(t *testing.T) {
	assert.Equal(t, "SOLUSDT", Exchange("sol/usdt"))
	assert.Equal(t, "ETHBTC", Exchange("eth/btc:btc"))
	assert.Equal(t, "SOLUSDT", Parse("SOL/USDT").Binance())
	assert.Equal(t, "SOL/USDT", Normalize("SOLUSDT"))
}
