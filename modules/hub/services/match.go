package services

// MatchAllowance computes the per-period solidarity draw a tenant is
// entitled to from its current deposit balance.
//
// Three bands: at or below minDeposit the match is 2x the deposit, between
// minDeposit and 2*minDeposit each extra unit deposited adds one unit of
// match, and above 2*minDeposit the tenant is self-sufficient and gets
// nothing. Below minDeposit there is no match at all.
func MatchAllowance(deposited int64, minDeposit int64) int64 {
	if minDeposit <= 0 {
		return 0
	}
	switch {
	case deposited < minDeposit:
		return 0
	case deposited <= minDeposit:
		return 2 * deposited
	case deposited <= 2*minDeposit:
		return 2*minDeposit + (deposited - minDeposit)
	default:
		return 0
	}
}

// MatchTier reports which band of the subsidy curve a deposit sits in:
// 0 below the minimum, 1 in the full-match band, 2 in the declining band,
// 3 self-sufficient.
func MatchTier(deposited int64, minDeposit int64) int {
	if minDeposit <= 0 {
		return 0
	}
	switch {
	case deposited < minDeposit:
		return 0
	case deposited <= minDeposit:
		return 1
	case deposited <= 2*minDeposit:
		return 2
	default:
		return 3
	}
}
