package store

import (
	"log/slog"
	"sync"
)

// HotelLockManager manages fine-grained locks per hotel ID so admin
// availability writes for different hotels never contend.
type HotelLockManager struct {
	locks    map[string]*sync.RWMutex
	locksMux sync.RWMutex
}

// NewHotelLockManager creates a new hotel lock manager
func NewHotelLockManager() *HotelLockManager {
	return &HotelLockManager{
		locks: make(map[string]*sync.RWMutex),
	}
}

// getHotelLock returns a mutex for the specified hotel ID, creating one if
// none exists yet
func (hlm *HotelLockManager) getHotelLock(hotelID string) *sync.RWMutex {
	hlm.locksMux.RLock()
	if lock, exists := hlm.locks[hotelID]; exists {
		hlm.locksMux.RUnlock()
		return lock
	}
	hlm.locksMux.RUnlock()

	hlm.locksMux.Lock()
	defer hlm.locksMux.Unlock()

	// Double-check in case another goroutine created it
	if lock, exists := hlm.locks[hotelID]; exists {
		return lock
	}

	newLock := &sync.RWMutex{}
	hlm.locks[hotelID] = newLock

	slog.Debug("Created new hotel lock", "hotel_id", hotelID)
	return newLock
}

// WithHotelWriteLock executes a function while holding a write lock for the hotel
func (hlm *HotelLockManager) WithHotelWriteLock(hotelID string, fn func()) {
	lock := hlm.getHotelLock(hotelID)
	lock.Lock()
	defer lock.Unlock()
	fn()
}

// WithHotelReadLock executes a function while holding a read lock for the hotel
func (hlm *HotelLockManager) WithHotelReadLock(hotelID string, fn func()) {
	lock := hlm.getHotelLock(hotelID)
	lock.RLock()
	defer lock.RUnlock()
	fn()
}

// Stats returns statistics about the lock manager
func (hlm *HotelLockManager) Stats() map[string]interface{} {
	hlm.locksMux.RLock()
	defer hlm.locksMux.RUnlock()

	return map[string]interface{}{
		"total_hotel_locks": len(hlm.locks),
		"lock_manager_type": "fine_grained_per_hotel",
	}
}
