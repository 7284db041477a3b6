// UniFi Insights - UniFi Network and Protect State Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/unifi-insights

package supervisor

import (
	"context"
	"errors"
	"sync/atomic"
)

// ErrSimulatedFailure is returned by a MockService scripted to fail.
var ErrSimulatedFailure = errors.New("simulated failure")

// MockService is a scriptable suture.Service used by supervisor tests.
// It can fail a fixed number of times before settling into a healthy
// blocking state, or return a fixed error on every start.
type MockService struct {
	name       string
	startCount atomic.Int32
	stopCount  atomic.Int32
	remaining  atomic.Int32
	err        atomic.Value // error
}

// NewMockService creates a mock service identified by name in suture logs.
func NewMockService(name string) *MockService {
	return &MockService{name: name}
}

// Serve implements suture.Service.
func (m *MockService) Serve(ctx context.Context) error {
	m.startCount.Add(1)
	defer m.stopCount.Add(1)

	if m.remaining.Add(-1) >= 0 {
		return ErrSimulatedFailure
	}

	if err, ok := m.err.Load().(error); ok && err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetError makes every subsequent Serve call return err immediately.
func (m *MockService) SetError(err error) {
	m.err.Store(err)
}

// SetFailCount makes the next n Serve calls fail, then run healthy.
func (m *MockService) SetFailCount(n int) {
	m.remaining.Store(int32(n))
}

// StartCount reports how many times Serve was entered.
func (m *MockService) StartCount() int32 {
	return m.startCount.Load()
}

// StopCount reports how many times Serve returned.
func (m *MockService) StopCount() int32 {
	return m.stopCount.Load()
}

// String implements fmt.Stringer for suture's event log.
func (m *MockService) String() string {
	return m.name
}
