package domain

// Venue identifies the trading venue an opportunity originates from. It is a
// closed set: the execution adapter switches on it exactly once, and the risk
// and ledger core never inspect it.
type Venue string

const (
	VenuePolymarket  Venue = "polymarket"
	VenueBaseDEX     Venue = "base_dex"
	VenueSolanaDEX   Venue = "solana_dex"
	VenueHyperliquid Venue = "hyperliquid"
)

// Valid reports whether v is one of the known venues.
func (v Venue) Valid() bool {
	switch v {
	case VenuePolymarket, VenueBaseDEX, VenueSolanaDEX, VenueHyperliquid:
		return true
	}
	return false
}

// Leveraged reports whether positions on this venue may carry leverage.
func (v Venue) Leveraged() bool {
	return v == VenueHyperliquid
}
