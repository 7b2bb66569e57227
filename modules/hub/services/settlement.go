package services

// splitResult is the outcome of apportioning one actual cost between the
// tenant's deposits and the solidarity fund.
type splitResult struct {
	FromDeposits   int64
	FromSolidarity int64
	Shortfall      int64
}

// computeSplit apportions actualCost. During grace the cost draws from
// solidarity first, deposits covering only what the grace ceiling cannot.
// After grace the target is a 50/50 split, with any remainder pulled
// greedily from leftover deposit headroom first and leftover solidarity
// headroom second. A non-zero Shortfall means authorize and settle
// disagreed, which the caller must treat as a consistency fault.
func computeSplit(actualCost int64, depositAvailable int64, solidarityHeadroom int64, inGrace bool) splitResult {
	if actualCost <= 0 {
		return splitResult{}
	}

	if inGrace {
		fromSolidarity := min(actualCost, solidarityHeadroom)
		fromDeposits := min(actualCost-fromSolidarity, depositAvailable)
		return splitResult{
			FromDeposits:   fromDeposits,
			FromSolidarity: fromSolidarity,
			Shortfall:      actualCost - fromDeposits - fromSolidarity,
		}
	}

	half := actualCost / 2
	fromDeposits := min(half, depositAvailable)
	fromSolidarity := min(half, solidarityHeadroom)

	remainder := actualCost - fromDeposits - fromSolidarity
	if remainder > 0 {
		take := min(remainder, depositAvailable-fromDeposits)
		fromDeposits += take
		remainder -= take
	}
	if remainder > 0 {
		take := min(remainder, solidarityHeadroom-fromSolidarity)
		fromSolidarity += take
		remainder -= take
	}

	return splitResult{
		FromDeposits:   fromDeposits,
		FromSolidarity: fromSolidarity,
		Shortfall:      remainder,
	}
}

// solidarityFee is the fund fee collected on top of the settled cost.
func solidarityFee(actualCost int64, feeBps int64) int64 {
	if actualCost <= 0 || feeBps <= 0 {
		return 0
	}
	return actualCost * feeBps / 10000
}
