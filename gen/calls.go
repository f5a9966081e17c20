package gen

// pendingCall is one generated unit awaiting inclusion in its module's
// batched test. Units that return an error are wrapped in a require.NoError
// by the batch; start hooks return nothing and are called bare.
type pendingCall struct {
	name    string
	wrapErr bool
}

// callAggregator tracks the ordered pending units per module index.
// Registration order is preserved because scripted commands are causally
// ordered; a batch replays them against one shared instance.
type callAggregator struct {
	pending map[uint32][]pendingCall
}

func newCallAggregator() *callAggregator {
	return &callAggregator{pending: make(map[uint32][]pendingCall)}
}

func (a *callAggregator) register(moduleIdx uint32, c pendingCall) {
	a.pending[moduleIdx] = append(a.pending[moduleIdx], c)
}

// take removes and returns the pending units for moduleIdx, so a second
// flush of the same index emits nothing.
func (a *callAggregator) take(moduleIdx uint32) []pendingCall {
	calls := a.pending[moduleIdx]
	delete(a.pending, moduleIdx)
	return calls
}
