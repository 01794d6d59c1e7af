// Package analyze runs the Analyze page's request lifecycle:
//
//	idle → loading → success(text, metrics) | error(message)
//
// A user has at most one analysis in flight. A successful analysis submits
// a stored record to the persistence worker and returns without waiting on it.
package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/Shimizu-Technology/content-analyzer/internal/logger"
	"github.com/Shimizu-Technology/content-analyzer/internal/metrics"
	"github.com/Shimizu-Technology/content-analyzer/internal/models"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/analysis"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/upload"
	"github.com/Shimizu-Technology/content-analyzer/internal/services/worker"
)

// NoTextPlaceholder replaces an empty extracted_text on success.
const NoTextPlaceholder = "No text extracted."

// ErrInFlight is returned while the same user's previous analysis is running.
var ErrInFlight = errors.New("an analysis is already in progress")

// State is a point in the request lifecycle.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateSuccess State = "success"
	StateError   State = "error"
)

// Analyzer is the analysis API as this package uses it.
type Analyzer interface {
	Analyze(ctx context.Context, sel *upload.Selection) (*models.ReceivedAnalysis, error)
}

// Persister queues stored record writes.
type Persister interface {
	Submit(rec models.StoredRecord) <-chan worker.Result
}

// Outcome is the page state after one analysis attempt.
type Outcome struct {
	State    State
	FileName string
	Text     string
	Warning  string
	Error    string

	// RawMetrics is the metrics object exactly as the analysis API sent it;
	// Metrics is the display copy read out of it.
	RawMetrics json.RawMessage
	Metrics    *models.Metrics

	// Persisted reports the stored record write; nil unless State is success.
	Persisted <-chan worker.Result
}

// Service runs analyses.
type Service struct {
	analyzer  Analyzer
	persister Persister

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New creates a Service.
func New(analyzer Analyzer, persister Persister) *Service {
	return &Service{
		analyzer:  analyzer,
		persister: persister,
		inflight:  make(map[string]struct{}),
	}
}

// Loading reports whether userID has an analysis in flight.
func (s *Service) Loading(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[userID]
	return ok
}

// Run analyzes sel for the signed-in session. It returns ErrInFlight (and
// makes no network call) if the user already has one running. Every other
// failure is reported in the Outcome, not as an error.
func (s *Service) Run(ctx context.Context, session models.Session, sel *upload.Selection) (*Outcome, error) {
	if !s.begin(session.UserID) {
		return &Outcome{State: StateLoading}, ErrInFlight
	}
	defer s.end(session.UserID)

	metrics.AnalysesInFlight.Inc()
	defer metrics.AnalysesInFlight.Dec()

	out := &Outcome{FileName: sel.Name}

	result, err := s.analyzer.Analyze(ctx, sel)
	if err != nil {
		out.State = StateError
		out.Error = displayError(err)
		metrics.AnalysesTotal.WithLabelValues(string(StateError)).Inc()
		logger.Warn("Analysis failed",
			zap.String("user_id", session.UserID),
			zap.String("file", sel.Name),
			zap.Error(err),
		)
		return out, nil
	}

	out.State = StateSuccess
	out.Text = result.ExtractedText
	if out.Text == "" {
		out.Text = NoTextPlaceholder
	}
	out.RawMetrics = result.Metrics
	out.Metrics = analysis.MetricsView(result.Metrics)
	out.Warning = result.Warning
	metrics.AnalysesTotal.WithLabelValues(string(StateSuccess)).Inc()

	// The stored copy keeps the raw text, not the placeholder.
	out.Persisted = s.persister.Submit(models.StoredRecord{
		UserID:        session.UserID,
		FileName:      sel.Name,
		ExtractedText: result.ExtractedText,
	})

	return out, nil
}

func (s *Service) begin(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[userID]; busy {
		return false
	}
	s.inflight[userID] = struct{}{}
	return true
}

func (s *Service) end(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, userID)
}

func displayError(err error) string {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		return aerr.Message
	}
	return analysis.TransportPrefix + err.Error()
}
