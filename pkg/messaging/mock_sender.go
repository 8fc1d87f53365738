package messaging

import (
	"context"
	"sync"
)

// MockReportSender is an in-memory ReportSender for testing. It records
// every message it is handed.
type MockReportSender struct {
	mu   sync.Mutex
	sent []*ReportMessage
	err  error
}

// NewMockReportSender creates a new MockReportSender.
func NewMockReportSender() *MockReportSender {
	return &MockReportSender{}
}

// FailWith makes every subsequent SendReport return err.
func (m *MockReportSender) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SendReport records the message.
func (m *MockReportSender) SendReport(_ context.Context, msg *ReportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of everything recorded so far.
func (m *MockReportSender) Sent() []*ReportMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*ReportMessage, len(m.sent))
	copy(out, m.sent)
	return out
}

// Close does nothing.
func (m *MockReportSender) Close() error {
	return nil
}

// Ensure MockReportSender implements ReportSender
var _ ReportSender = (*MockReportSender)(nil)
