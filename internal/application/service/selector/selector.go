package selector

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	instruments "main/internal/domain/entity/instruments"
	"main/internal/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// ErrNoContract means the catalog holds no candidate for a role, for
// example an empty chain for the nearest expiry.
var ErrNoContract = errors.New("no candidate contract")

// Selector resolves which contract each role should track for the current
// reference price.
type Selector struct {
	reference  interfaces.ReferenceSource
	catalog    interfaces.OptionCatalog
	strikeStep float64
	log        *logrus.Entry
}

func New(reference interfaces.ReferenceSource, catalog interfaces.OptionCatalog, strikeStep float64, log *logrus.Entry) *Selector {
	return &Selector{reference: reference, catalog: catalog, strikeStep: strikeStep, log: log}
}

// Desired picks the nearest out-of-the-money call and put: the reference
// price is rounded outward to the strike grid (up for calls, down for puts)
// and the listed strike closest to that target wins, among contracts of the
// nearest expiry on or after today.
func (s *Selector) Desired(ctx context.Context, now time.Time) (map[instruments.Role]instruments.OptionContract, error) {
	price, err := s.reference.ReferencePrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("reference price: %w", err)
	}

	chain, err := s.catalog.ListOptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list options: %w", err)
	}

	expiry, ok := nearestExpiry(chain, now)
	if !ok {
		return nil, fmt.Errorf("%w: no unexpired contracts", ErrNoContract)
	}

	callTarget := math.Ceil(price/s.strikeStep) * s.strikeStep
	putTarget := math.Floor(price/s.strikeStep) * s.strikeStep

	call, okCall := closestStrike(chain, expiry, instruments.OptionCall, callTarget)
	put, okPut := closestStrike(chain, expiry, instruments.OptionPut, putTarget)
	if !okCall || !okPut {
		return nil, fmt.Errorf("%w: incomplete chain for expiry %s", ErrNoContract, expiry.Format("2006-01-02"))
	}

	s.log.WithFields(logrus.Fields{
		"reference": price,
		"expiry":    expiry.Format("2006-01-02"),
		"call":      call.Ticker,
		"put":       put.Ticker,
	}).Debug("selection resolved")

	return map[instruments.Role]instruments.OptionContract{
		instruments.RoleNearestOTMCall: call,
		instruments.RoleNearestOTMPut:  put,
	}, nil
}

func nearestExpiry(chain []instruments.OptionContract, now time.Time) (time.Time, bool) {
	today := now.UTC().Truncate(24 * time.Hour)
	var best time.Time
	found := false
	for _, c := range chain {
		exp := c.Expiry.UTC().Truncate(24 * time.Hour)
		if exp.Before(today) {
			continue
		}
		if !found || exp.Before(best) {
			best = exp
			found = true
		}
	}
	return best, found
}

func closestStrike(chain []instruments.OptionContract, expiry time.Time, right instruments.OptionRight, target float64) (instruments.OptionContract, bool) {
	var best instruments.OptionContract
	bestDist := math.Inf(1)
	for _, c := range chain {
		if c.Right != right || !c.Expiry.UTC().Truncate(24*time.Hour).Equal(expiry) {
			continue
		}
		if d := math.Abs(c.Strike - target); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}
