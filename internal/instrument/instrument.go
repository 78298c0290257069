// Package instrument defines the assets and trading pairs the exchange
// supports. The supported set is closed and whitelisted: nothing here is
// dynamically registered at runtime.
package instrument

import (
	"fmt"
	"strings"
)

// Asset is an enumerated token identity drawn from a closed supported set.
type Asset uint8

const (
	BTC Asset = iota
	ETH
	USD
)

var assetNames = map[Asset]string{
	BTC: "BTC",
	ETH: "ETH",
	USD: "USD",
}

var assetsByName = map[string]Asset{
	"BTC": BTC,
	"ETH": ETH,
	"USD": USD,
}

// String renders the asset as its uppercase mnemonic.
func (a Asset) String() string {
	name, ok := assetNames[a]
	if !ok {
		return fmt.Sprintf("Asset(%d)", uint8(a))
	}
	return name
}

// ParseAsset parses an uppercase mnemonic into an Asset. It is strict:
// lowercase or unknown mnemonics are rejected.
func ParseAsset(s string) (Asset, error) {
	asset, ok := assetsByName[s]
	if !ok {
		return 0, fmt.Errorf("unsupported asset: %q", s)
	}
	return asset, nil
}

// Pair is an ordered (base, quote) combination of assets, e.g. BTC-USD.
// It is hashable and totally equatable by value, so it can be used
// directly as a map key.
type Pair struct {
	Base  Asset
	Quote Asset
}

// Canonical renders the pair in its wire form: BASE-QUOTE.
func (p Pair) Canonical() string {
	return p.Base.String() + "-" + p.Quote.String()
}

func (p Pair) String() string {
	return p.Canonical()
}

// CryptoUSD is a factory for the common crypto/USD spot pairs.
func CryptoUSD(base Asset) Pair {
	return Pair{Base: base, Quote: USD}
}

var (
	BTCUSD = Pair{Base: BTC, Quote: USD}
	ETHUSD = Pair{Base: ETH, Quote: USD}
)

// Supported returns the whitelisted set of legal trading pairs.
func Supported() []Pair {
	return []Pair{BTCUSD, ETHUSD}
}

// IsSupported reports whether p is in the whitelist.
func IsSupported(p Pair) bool {
	for _, sp := range Supported() {
		if sp == p {
			return true
		}
	}
	return false
}

// ParsePair parses a canonical BASE-QUOTE string against the whitelist.
// Parsing is strict: unknown assets or unlisted combinations are rejected.
func ParsePair(s string) (Pair, error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return Pair{}, fmt.Errorf("malformed pair: %q", s)
	}
	base, err := ParseAsset(parts[0])
	if err != nil {
		return Pair{}, fmt.Errorf("malformed pair %q: %w", s, err)
	}
	quote, err := ParseAsset(parts[1])
	if err != nil {
		return Pair{}, fmt.Errorf("malformed pair %q: %w", s, err)
	}
	pair := Pair{Base: base, Quote: quote}
	if !IsSupported(pair) {
		return Pair{}, fmt.Errorf("unsupported pair: %q", s)
	}
	return pair, nil
}
