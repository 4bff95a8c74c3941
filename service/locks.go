package service

import "sync"

// productLocks hands out one mutex per product ID. Entries are never removed;
// the set is bounded by the catalog size.
type productLocks struct {
	locks sync.Map // map[int64]*sync.Mutex
}

// lock acquires the mutex for productID and returns its unlock func.
func (p *productLocks) lock(productID int64) func() {
	// fast path Load
	if v, ok := p.locks.Load(productID); ok {
		m := v.(*sync.Mutex)
		m.Lock()
		return m.Unlock
	}

	m := &sync.Mutex{}
	actual, _ := p.locks.LoadOrStore(productID, m)
	mtx := actual.(*sync.Mutex)
	mtx.Lock()
	return mtx.Unlock
}
