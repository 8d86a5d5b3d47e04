package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// orderLocks serializes transitions per order id. Concurrent requests for
// the same order take the same stripe, so validation and persistence run
// as one critical section against each other.
type orderLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *orderLocks) lock(orderID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(orderID))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m
}
