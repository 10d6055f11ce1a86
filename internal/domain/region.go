package domain

import "strconv"

// RegionKind is the granularity of a Region.
type RegionKind int

const (
	RegionGlobal RegionKind = iota
	RegionCountry
	RegionMarket
	RegionSecurity
)

func (k RegionKind) String() string {
	switch k {
	case RegionGlobal:
		return "GLOBAL"
	case RegionCountry:
		return "COUNTRY"
	case RegionMarket:
		return "MARKET"
	case RegionSecurity:
		return "SECURITY"
	default:
		return "UNKNOWN"
	}
}

// Region is a trading location at one of four granularities:
// Global ⊇ Country ⊇ Market ⊇ Security.
// The zero value is the global region.
type Region struct {
	kind     RegionKind
	country  CountryCode
	market   MarketCode
	security Security
}

// GlobalRegion returns the region containing every security.
func GlobalRegion() Region {
	return Region{kind: RegionGlobal}
}

// CountryRegion returns the region of a single country.
func CountryRegion(code CountryCode) Region {
	return Region{kind: RegionCountry, country: code}
}

// MarketRegion returns the region of a single market.
func MarketRegion(m Market) Region {
	return Region{kind: RegionMarket, market: m.Code, country: m.Country}
}

// SecurityRegion returns the region of a single security.
func SecurityRegion(s Security) Region {
	return Region{kind: RegionSecurity, security: s, market: s.Market, country: s.Country}
}

// Kind returns the region's granularity.
func (r Region) Kind() RegionKind { return r.kind }

// IsGlobal reports whether r is the global region.
func (r Region) IsGlobal() bool { return r.kind == RegionGlobal }

// Country returns the country of a country, market or security region.
func (r Region) Country() CountryCode { return r.country }

// Market returns the market of a market or security region.
func (r Region) Market() MarketCode { return r.market }

// Security returns the security of a security region.
func (r Region) Security() Security { return r.security }

// Includes reports whether other is a subset of r.
func (r Region) Includes(other Region) bool {
	switch r.kind {
	case RegionGlobal:
		return true
	case RegionCountry:
		return other.kind != RegionGlobal && other.country == r.country
	case RegionMarket:
		return (other.kind == RegionMarket || other.kind == RegionSecurity) &&
			other.market == r.market
	case RegionSecurity:
		return other.kind == RegionSecurity && other.security == r.security
	}
	return false
}

// Contains reports whether the security lies inside r.
func (r Region) Contains(s Security) bool {
	return r.Includes(SecurityRegion(s))
}

func (r Region) String() string {
	switch r.kind {
	case RegionGlobal:
		return "*"
	case RegionCountry:
		return "country:" + strconv.Itoa(int(r.country))
	case RegionMarket:
		return "market:" + string(r.market)
	case RegionSecurity:
		return "security:" + r.security.String()
	}
	return "unknown"
}
