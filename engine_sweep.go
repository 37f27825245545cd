package authcore

import "context"

// SweepExpired deletes refresh credentials that stopped being valid more
// than Session.RetainInactive ago and returns how many were removed.
func (e *Engine) SweepExpired(ctx context.Context) (int64, error) {
	if e == nil {
		return 0, ErrEngineNotReady
	}
	cutoff := e.now().Add(-e.config.Session.RetainInactive)

	sctx, cancel := e.storeCtx(ctx)
	n, err := e.store.DeleteInactive(sctx, cutoff)
	cancel()
	if err != nil {
		return 0, e.storeErr(err)
	}
	if e.metrics != nil {
		e.metrics.Add(MetricCredentialsSwept, uint64(n))
	}
	return n, nil
}
