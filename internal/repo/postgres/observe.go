package postgres

// DBObserver records latency and failure class for a logical store operation.
// *observability.Prom satisfies it; repos run bare when none is given.
type DBObserver interface {
	ObserveDB(op string, fn func() error) error
}

func observe(obs DBObserver, op string, fn func() error) error {
	if obs == nil {
		return fn()
	}

	return obs.ObserveDB(op, fn)
}
