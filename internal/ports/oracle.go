package ports

import "context"

// PriceOracle returns the current reference price of an asset, in integer
// price units.
type PriceOracle interface {
	// Price fails with domain.ErrOracleUnavailable or domain.ErrStalePrice.
	Price(ctx context.Context, assetID string) (uint64, error)
}
