package services

import "testing"

func TestComputeSplitEvenHalves(t *testing.T) {
	t.Parallel()

	got := computeSplit(1000, 5000, 5000, false)
	if got.FromDeposits != 500 || got.FromSolidarity != 500 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 500/500/0", got)
	}
}

func TestComputeSplitOddRemainderFromDeposits(t *testing.T) {
	t.Parallel()

	got := computeSplit(1001, 5000, 5000, false)
	if got.FromDeposits != 501 || got.FromSolidarity != 500 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 501/500/0", got)
	}
}

func TestComputeSplitDepositShortfallFallsToSolidarity(t *testing.T) {
	t.Parallel()

	got := computeSplit(1000, 200, 5000, false)
	if got.FromDeposits != 200 || got.FromSolidarity != 800 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 200/800/0", got)
	}
}

func TestComputeSplitSolidarityShortfallFallsToDeposits(t *testing.T) {
	t.Parallel()

	got := computeSplit(1000, 5000, 100, false)
	if got.FromDeposits != 900 || got.FromSolidarity != 100 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 900/100/0", got)
	}
}

func TestComputeSplitReportsShortfall(t *testing.T) {
	t.Parallel()

	got := computeSplit(1000, 300, 200, false)
	if got.FromDeposits != 300 || got.FromSolidarity != 200 || got.Shortfall != 500 {
		t.Fatalf("split = %+v, want 300/200/500", got)
	}
}

func TestComputeSplitGraceDrawsSolidarityFirst(t *testing.T) {
	t.Parallel()

	got := computeSplit(1000, 5000, 700, true)
	if got.FromDeposits != 300 || got.FromSolidarity != 700 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 300/700/0", got)
	}
}

func TestComputeSplitGraceFullyCoveredBySolidarity(t *testing.T) {
	t.Parallel()

	got := computeSplit(400, 0, 1000, true)
	if got.FromDeposits != 0 || got.FromSolidarity != 400 || got.Shortfall != 0 {
		t.Fatalf("split = %+v, want 0/400/0", got)
	}
}

func TestComputeSplitZeroCost(t *testing.T) {
	t.Parallel()

	got := computeSplit(0, 5000, 5000, false)
	if got != (splitResult{}) {
		t.Fatalf("split = %+v, want zero", got)
	}
}

func TestSolidarityFee(t *testing.T) {
	t.Parallel()

	cases := []struct {
		cost   int64
		feeBps int64
		want   int64
	}{
		{1000, 100, 10},
		{1000, 0, 0},
		{0, 100, 0},
		{99, 100, 0},
		{10000, 250, 250},
		{3, 5000, 1},
	}
	for _, tc := range cases {
		if got := solidarityFee(tc.cost, tc.feeBps); got != tc.want {
			t.Fatalf("solidarityFee(%d, %d) = %d, want %d", tc.cost, tc.feeBps, got, tc.want)
		}
	}
}
