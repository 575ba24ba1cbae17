package rental

import (
	"fmt"
	"sync"
)

type keyedLock struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex hands out one mutex per key and forgets it once nobody holds or waits on it.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedLock)}
}

func (k *KeyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	l, exists := k.locks[key]
	if !exists {
		l = &keyedLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			k.mu.Lock()
			defer k.mu.Unlock()
			l.refs--
			if l.refs == 0 {
				delete(k.locks, key)
			}
		})
	}
}

func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}

func userKey(userID string) string {
	return "user:" + userID
}

func batteryKey(batteryID uint) string {
	return fmt.Sprintf("battery:%d", batteryID)
}

// Episode locks are always taken user first, then battery.
func (r *Rental) lockUser(userID string) func() {
	return r.locks.Lock(userKey(userID))
}

func (r *Rental) lockBattery(batteryID uint) func() {
	return r.locks.Lock(batteryKey(batteryID))
}
