package twin

import (
	"log/slog"
	"time"

	"github.com/benjaminle3309williamlopez/TbmTwin-FHE/interfaces"
	"github.com/stretchr/testify/mock"
)

// SlogEventSink logs every notification. It is the default sink when none is
// configured.
type SlogEventSink struct {
	log *slog.Logger
}

// NewSlogEventSink creates a sink logging to log.
func NewSlogEventSink(log *slog.Logger) *SlogEventSink {
	return &SlogEventSink{log: log}
}

func (s *SlogEventSink) RecordSubmitted(id interfaces.RecordID, submittedAt time.Time) {
	s.log.Info("event: record submitted",
		slog.Uint64("recordID", uint64(id)),
		slog.Time("submittedAt", submittedAt))
}

func (s *SlogEventSink) RevealRequested(id interfaces.RequestID, target interfaces.RevealTarget) {
	s.log.Info("event: reveal requested",
		slog.Uint64("requestID", uint64(id)),
		slog.String("target", target.String()))
}

func (s *SlogEventSink) RecordDecrypted(id interfaces.RecordID) {
	s.log.Info("event: record decrypted", slog.Uint64("recordID", uint64(id)))
}

func (s *SlogEventSink) CounterDecrypted(category interfaces.Category) {
	s.log.Info("event: counter decrypted", slog.String("category", string(category)))
}

// MockEventSink mocks the EventSink interface.
type MockEventSink struct {
	mock.Mock
}

// RecordSubmitted mocks the RecordSubmitted notification.
func (m *MockEventSink) RecordSubmitted(id interfaces.RecordID, submittedAt time.Time) {
	m.Called(id, submittedAt)
}

// RevealRequested mocks the RevealRequested notification.
func (m *MockEventSink) RevealRequested(id interfaces.RequestID, target interfaces.RevealTarget) {
	m.Called(id, target)
}

// RecordDecrypted mocks the RecordDecrypted notification.
func (m *MockEventSink) RecordDecrypted(id interfaces.RecordID) {
	m.Called(id)
}

// CounterDecrypted mocks the CounterDecrypted notification.
func (m *MockEventSink) CounterDecrypted(category interfaces.Category) {
	m.Called(category)
}
