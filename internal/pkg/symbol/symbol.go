package symbol

import "strings"

// Symbol is a spot pair split into its assets.
type Symbol struct {
	Base  string
	Quote string
}

func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance is the concatenated pair, e.g. "SOLUSDT".
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

func (s Symbol) Valid() bool { return s.Base != "" && s.Quote != "" }

// knownQuotes is checked longest-first so FDUSD wins over USD-like suffixes.
var knownQuotes = []string{"FDUSD", "USDT", "BUSD", "USDC", "TUSD", "BTC", "ETH", "BNB"}

// Parse accepts "SOL/USDT", "SOLUSDT" or "sol/usdt:usdt".
func Parse(s string) Symbol {
	return ParseWithQuote(s, "")
}

// ParseWithQuote prefers the given quote asset when the input has no separator.
func ParseWithQuote(s, quote string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{
			Base:  strings.TrimSpace(parts[0]),
			Quote: strings.TrimSpace(parts[1]),
		}
	}
	candidates := knownQuotes
	if q := strings.ToUpper(strings.TrimSpace(quote)); q != "" {
		candidates = append([]string{q}, knownQuotes...)
	}
	for _, q := range candidates {
		if strings.HasSuffix(s, q) && len(s) > len(q) {
			return Symbol{Base: s[:len(s)-len(q)], Quote: q}
		}
	}
	return Symbol{}
}

func Normalize(s string) string {
	return Parse(s).Internal()
}

func IsValid(s string) bool {
	return Parse(s).Valid()
}

// Exchange renders any accepted spelling in the form Binance expects. Input
// that cannot be split is upper-cased with separators removed.
func Exchange(s string) string {
	if sym := Parse(s); sym.Valid() {
		return sym.Binance()
	}
	return exchangeReplacer.Replace(strings.ToUpper(strings.TrimSpace(s)))
}

var exchangeReplacer = strings.NewReplacer("/", "", "-", "", "_", "")
