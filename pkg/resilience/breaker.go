/*
Copyright 2025 Jordi Gil.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package resilience wraps the decision core's external adapters (LLM,
// RAG, KG, team registry) with circuit breakers, following the teacher's
// BR-REL-009 pattern of guarding every external dependency. Where the
// teacher hand-rolled a breaker, this package uses the corpus's actual
// github.com/sony/gobreaker dependency directly (see DESIGN.md).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/sirupsen/logrus"
)

// ErrCircuitOpen is returned (wrapped) when a breaker refuses a call.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Breaker wraps one external dependency's calls in a named circuit breaker.
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	name   string
	logger *logrus.Logger
}

// NewBreaker constructs a breaker that opens after failureThreshold fraction
// of at least minRequests calls fail within the rolling interval, and stays
// open for resetTimeout before allowing trial requests.
func NewBreaker(name string, failureThreshold float64, minRequests uint32, resetTimeout time.Duration, logger *logrus.Logger) *Breaker {
	b := &Breaker{name: name, logger: logger}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     resetTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= failureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			if b.logger != nil {
				b.logger.WithFields(logrus.Fields{
					"breaker": name, "from": from.String(), "to": to.String(),
				}).Warn("circuit breaker state change")
			}
		},
	}
	b.cb = gobreaker.NewCircuitBreaker(settings)
	return b
}

// Name returns the breaker's configured name.
func (b *Breaker) Name() string { return b.name }

// State returns the breaker's current state.
func (b *Breaker) State() gobreaker.State { return b.cb.State() }

// Call executes fn through the breaker, honoring ctx cancellation as part of
// the call's own responsibility (fn must itself respect ctx).
func (b *Breaker) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, fn(ctx)
	})
	return err
}

// IsOpen reports whether err represents a breaker-open rejection.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState)
}
