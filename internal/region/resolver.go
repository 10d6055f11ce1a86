// Package region resolves operator-supplied region tokens.
package region

import (
	"strings"

	"cancel_sweep/internal/domain"
)

// Wildcard denotes the global region.
const Wildcard = "*"

// parser tries one interpretation of a token.
type parser func(token string, countries *domain.CountryDatabase, markets *domain.MarketDatabase) (domain.Region, bool)

// parsers are tried in order; the first match wins. Country and market codes
// can collide with ticker prefixes, so the broader interpretation goes first.
var parsers = []parser{
	parseGlobal,
	parseCountry,
	parseMarket,
	parseSecurity,
}

// Resolve turns a token into a Region. An unknown token is an
// *domain.InvalidRegionError, never a best guess.
func Resolve(token string, countries *domain.CountryDatabase, markets *domain.MarketDatabase) (domain.Region, error) {
	token = strings.TrimSpace(token)
	if token != "" {
		for _, parse := range parsers {
			if r, ok := parse(token, countries, markets); ok {
				return r, nil
			}
		}
	}
	return domain.Region{}, &domain.InvalidRegionError{Token: token}
}

func parseGlobal(token string, _ *domain.CountryDatabase, _ *domain.MarketDatabase) (domain.Region, bool) {
	if token == Wildcard {
		return domain.GlobalRegion(), true
	}
	return domain.Region{}, false
}

func parseCountry(token string, countries *domain.CountryDatabase, _ *domain.MarketDatabase) (domain.Region, bool) {
	lookups := []func(string) (domain.Country, bool){
		countries.FromTwoLetterCode,
		countries.FromThreeLetterCode,
		countries.FromName,
	}
	for _, lookup := range lookups {
		if c, ok := lookup(token); ok {
			return domain.CountryRegion(c.Code), true
		}
	}
	return domain.Region{}, false
}

func parseMarket(token string, _ *domain.CountryDatabase, markets *domain.MarketDatabase) (domain.Region, bool) {
	if m, ok := markets.Parse(token); ok {
		return domain.MarketRegion(m), true
	}
	return domain.Region{}, false
}

func parseSecurity(token string, _ *domain.CountryDatabase, markets *domain.MarketDatabase) (domain.Region, bool) {
	if s, ok := domain.ParseSecurity(token, markets); ok {
		return domain.SecurityRegion(s), true
	}
	return domain.Region{}, false
}
