// Package history keeps recent snapshots per symbol and expiry so that the
// caller-side inputs of an analysis (average volume, previous OI difference,
// open interest by expiry) can be derived from earlier observations.
package history

import (
	"sort"
	"sync"

	"github.com/montanaflynn/stats"

	analytics "github.com/jwaldner/chainsignal/analytics_lib"
)

// DefaultWindow is the number of observations kept per strike
const DefaultWindow = 20

type series struct {
	volumes    map[float64][]float64
	lastOIDiff map[float64]int64
	updates    int
}

// Store is safe for concurrent use
type Store struct {
	window int

	series   map[string]*series                      // symbol|expiry
	expiryOI map[string]map[string]map[float64]int64 // symbol -> expiry -> strike -> OI
	mutex    sync.RWMutex
}

// NewStore creates a store keeping window observations per strike
func NewStore(window int) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window:   window,
		series:   make(map[string]*series),
		expiryOI: make(map[string]map[string]map[float64]int64),
	}
}

func key(symbol, expiry string) string {
	return symbol + "|" + expiry
}

// Record adds a snapshot's combined volume and OI difference per strike
func (s *Store) Record(snap analytics.OptionChainSnapshot) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	k := key(snap.Symbol, snap.Expiry)
	ser, ok := s.series[k]
	if !ok {
		ser = &series{
			volumes:    make(map[float64][]float64),
			lastOIDiff: make(map[float64]int64),
		}
		s.series[k] = ser
	}

	totals := make(map[float64]int64, len(snap.Records))
	for _, r := range snap.Records {
		v := append(ser.volumes[r.Strike], float64(r.CEVolume+r.PEVolume))
		if len(v) > s.window {
			v = v[len(v)-s.window:]
		}
		ser.volumes[r.Strike] = v
		ser.lastOIDiff[r.Strike] = r.OIDiff()
		totals[r.Strike] = r.TotalOI()
	}
	ser.updates++

	if s.expiryOI[snap.Symbol] == nil {
		s.expiryOI[snap.Symbol] = make(map[string]map[float64]int64)
	}
	s.expiryOI[snap.Symbol][snap.Expiry] = totals
}

// SetExpiryOI replaces the open interest known for one expiry of symbol
func (s *Store) SetExpiryOI(symbol, expiry string, oi map[float64]int64) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.expiryOI[symbol] == nil {
		s.expiryOI[symbol] = make(map[string]map[float64]int64)
	}
	cp := make(map[float64]int64, len(oi))
	for k, v := range oi {
		cp[k] = v
	}
	s.expiryOI[symbol][expiry] = cp
}

// AvgVolume returns the rolling mean combined volume per strike.
// Strikes never observed are absent.
func (s *Store) AvgVolume(symbol, expiry string) map[float64]float64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ser, ok := s.series[key(symbol, expiry)]
	if !ok {
		return nil
	}
	out := make(map[float64]float64, len(ser.volumes))
	for strike, v := range ser.volumes {
		mean, err := stats.Mean(v)
		if err != nil {
			continue
		}
		out[strike] = mean
	}
	return out
}

// PrevOIDiff returns the OI difference per strike from the last recorded snapshot
func (s *Store) PrevOIDiff(symbol, expiry string) map[float64]int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	ser, ok := s.series[key(symbol, expiry)]
	if !ok {
		return nil
	}
	out := make(map[float64]int64, len(ser.lastOIDiff))
	for k, v := range ser.lastOIDiff {
		out[k] = v
	}
	return out
}

// ExpiryOI returns the latest open interest per strike for every expiry seen for symbol
func (s *Store) ExpiryOI(symbol string) map[string]map[float64]int64 {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	src := s.expiryOI[symbol]
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]map[float64]int64, len(src))
	for expiry, oi := range src {
		cp := make(map[float64]int64, len(oi))
		for k, v := range oi {
			cp[k] = v
		}
		out[expiry] = cp
	}
	return out
}

// Updates returns how many snapshots were recorded for symbol and expiry
func (s *Store) Updates(symbol, expiry string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if ser, ok := s.series[key(symbol, expiry)]; ok {
		return ser.updates
	}
	return 0
}

// Symbols lists every symbol with recorded history
func (s *Store) Symbols() []string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	out := make([]string, 0, len(s.expiryOI))
	for sym := range s.expiryOI {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
