// Package ledger holds the player's data balance and lifetime totals.
// This package is PURE and must NOT import any infrastructure packages.
package ledger

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidAmount is returned for negative, NaN or infinite amounts.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInsufficientFunds is returned when a debit exceeds the balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
)

// State is the serializable view of a ledger.
type State struct {
	Balance        float64
	TotalGenerated float64
	TotalClicks    int64
	PeakRate       float64
}

// Ledger tracks balance and the monotonic lifetime counters.
// It is owned by a single goroutine and never notifies anyone.
type Ledger struct {
	balance        float64
	totalGenerated float64
	totalClicks    int64
	peakRate       float64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{}
}

// Credit adds amount to the balance and to totalGenerated.
func (l *Ledger) Credit(amount float64) error {
	if !valid(amount) {
		return fmt.Errorf("credit %v: %w", amount, ErrInvalidAmount)
	}
	l.balance += amount
	l.totalGenerated += amount
	return nil
}

// Debit removes amount from the balance. State is unchanged on error.
func (l *Ledger) Debit(amount float64) error {
	if !valid(amount) {
		return fmt.Errorf("debit %v: %w", amount, ErrInvalidAmount)
	}
	if amount > l.balance {
		return fmt.Errorf("debit %v from %v: %w", amount, l.balance, ErrInsufficientFunds)
	}
	l.balance -= amount
	return nil
}

// CanAfford reports whether a debit of amount would succeed.
func (l *Ledger) CanAfford(amount float64) bool {
	return valid(amount) && amount <= l.balance
}

// RecordClick counts one manual click.
func (l *Ledger) RecordClick() {
	l.totalClicks++
}

// ObserveRate raises peakRate to rate if it is higher.
func (l *Ledger) ObserveRate(rate float64) {
	if valid(rate) && rate > l.peakRate {
		l.peakRate = rate
	}
}

func (l *Ledger) Balance() float64        { return l.balance }
func (l *Ledger) TotalGenerated() float64 { return l.totalGenerated }
func (l *Ledger) TotalClicks() int64      { return l.totalClicks }
func (l *Ledger) PeakRate() float64       { return l.peakRate }

// State returns a copy of the ledger's fields.
func (l *Ledger) State() State {
	return State{
		Balance:        l.balance,
		TotalGenerated: l.totalGenerated,
		TotalClicks:    l.totalClicks,
		PeakRate:       l.peakRate,
	}
}

// Restore overwrites the ledger wholesale. Used only when loading a save.
func (l *Ledger) Restore(s State) error {
	if !valid(s.Balance) || !valid(s.TotalGenerated) || !valid(s.PeakRate) || s.TotalClicks < 0 {
		return fmt.Errorf("restore ledger: %w", ErrInvalidAmount)
	}
	l.balance = s.Balance
	l.totalGenerated = s.TotalGenerated
	l.totalClicks = s.TotalClicks
	l.peakRate = s.PeakRate
	return nil
}

func valid(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
