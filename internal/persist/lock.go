package persist

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"gopkg.in/yaml.v3"
)

// lockRecord identifies the owner of the exclusive lock. A record older
// than the stale timeout is reclaimed only if its owning process is
// verified not to be running on this host.
type lockRecord struct {
	PID        int    `yaml:"pid"`
	Hostname   string `yaml:"hostname"`
	AcquiredAt string `yaml:"acquired_at"` // RFC3339
}

// acquireLock takes the exclusive lock, reclaiming a stale one if
// needed, and returns the release function.
func (s *Store) acquireLock() (func(), error) {
	for attempt := 0; attempt < 2; attempt++ {
		release, err := s.tryCreateLock()
		if err == nil {
			return release, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("persist: creating lock: %w", err)
		}
		if !s.lockIsStale() {
			return nil, ErrLocked
		}
		// Stale lock from a dead process: reclaim and retry once.
		if err := os.Remove(s.lockPath()); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("persist: reclaiming stale lock: %w", err)
		}
	}
	return nil, ErrLocked
}

// tryCreateLock writes the lock record with O_EXCL so exactly one
// process wins.
func (s *Store) tryCreateLock() (func(), error) {
	f, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	rec := lockRecord{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := yaml.Marshal(rec)
	if err == nil {
		_, err = f.Write(data)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(s.lockPath())
		return nil, err
	}

	return func() { _ = os.Remove(s.lockPath()) }, nil
}

// lockIsStale reads the current lock record and decides whether it can
// be reclaimed. An unreadable or malformed record counts as stale; a
// readable one is stale only when it is old enough AND its owner is
// verified dead (same-host check — a lock from another host is never
// reclaimed).
func (s *Store) lockIsStale() bool {
	data, err := os.ReadFile(s.lockPath())
	if err != nil {
		// Racing release: the lock vanished, caller retries creation.
		return os.IsNotExist(err)
	}

	var rec lockRecord
	if err := yaml.Unmarshal(data, &rec); err != nil || rec.PID == 0 {
		return true
	}

	acquired, err := time.Parse(time.RFC3339, rec.AcquiredAt)
	if err != nil {
		return true
	}
	if time.Since(acquired) < s.cfg.StaleAfter {
		return false
	}

	hostname, _ := os.Hostname()
	if rec.Hostname != hostname {
		return false
	}
	return !processRunning(rec.PID)
}

// processRunning probes pid with signal 0.
func processRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
