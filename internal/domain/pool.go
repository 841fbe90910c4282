package domain

// CollateralPool is the shared collateral backing every open bet.
//
// Balance is a snapshot of the pool's ledger account; TotalLocked is the sum
// of ReservedPayout over open bets and is only changed through Lock and
// Release. CollateralPool does no locking of its own: its owner serializes
// access.
type CollateralPool struct {
	Account     string
	Balance     uint64
	TotalLocked uint64
}

// Available returns Balance − TotalLocked. A negative value means the
// solvency invariant is already broken and is reported as ErrArithmetic.
func (p CollateralPool) Available() (uint64, error) {
	return CheckedSub(p.Balance, p.TotalLocked)
}

// CanReserve reports whether amount fits in the available collateral.
func (p CollateralPool) CanReserve(amount uint64) error {
	avail, err := p.Available()
	if err != nil {
		return ErrInsufficientCollateral
	}
	if avail < amount {
		return ErrInsufficientCollateral
	}
	return nil
}

// Lock reserves amount against the pool.
func (p *CollateralPool) Lock(amount uint64) error {
	if err := p.CanReserve(amount); err != nil {
		return err
	}
	locked, err := CheckedAdd(p.TotalLocked, amount)
	if err != nil {
		return err
	}
	p.TotalLocked = locked
	return nil
}

// Release returns amount of reserved collateral. It never underflows.
func (p *CollateralPool) Release(amount uint64) error {
	locked, err := CheckedSub(p.TotalLocked, amount)
	if err != nil {
		return err
	}
	p.TotalLocked = locked
	return nil
}

// PoolStatus is a read-only view of the pool for reports and the API.
type PoolStatus struct {
	Account     string
	Balance     uint64
	TotalLocked uint64
	Available   uint64
	OpenBets    int
}
