package protoarray

// computeDeltas walks every validator's vote, moving each one's
// balance contribution from its old root to its new root: a validator
// whose vote target changed subtracts its balance from the old root
// and adds it to the new one. Validators with no new vote this round
// and validators whose balance changed between rounds are both
// handled.
func computeDeltas(votes []Vote, oldBalances, newBalances []uint64) (map[[32]byte]int64, []Vote) {
	deltas := make(map[[32]byte]int64)
	next := make([]Vote, len(votes))
	copy(next, votes)

	for i := range next {
		v := &next[i]
		if v.nextRoot == v.currentRoot && !hasBalanceChanged(i, oldBalances, newBalances) {
			continue
		}

		var oldBalance, newBalance uint64
		if i < len(oldBalances) {
			oldBalance = oldBalances[i]
		}
		if i < len(newBalances) {
			newBalance = newBalances[i]
		}

		if v.currentRoot != ([32]byte{}) && oldBalance != 0 {
			deltas[v.currentRoot] -= int64(oldBalance)
		}
		if v.nextRoot != ([32]byte{}) && newBalance != 0 {
			deltas[v.nextRoot] += int64(newBalance)
		}
		v.currentRoot = v.nextRoot
	}
	return deltas, next
}

func hasBalanceChanged(i int, oldBalances, newBalances []uint64) bool {
	var o, n uint64
	if i < len(oldBalances) {
		o = oldBalances[i]
	}
	if i < len(newBalances) {
		n = newBalances[i]
	}
	return o != n
}
