// Package monitor runs the periodic scan that turns live matches into delivered tips.
package monitor

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rewired-gh/mobatips/internal/logger"
	"github.com/rewired-gh/mobatips/internal/metrics"
	"github.com/rewired-gh/mobatips/internal/models"
)

// LiveMatchSource returns the matches currently being played.
type LiveMatchSource interface {
	FetchLiveMatches(ctx context.Context) ([]models.TelemetrySnapshot, error)
}

// OddsSource returns the current odds of one match.
type OddsSource interface {
	FetchOdds(ctx context.Context, matchID string) (models.MatchOdds, error)
}

// TipSink delivers a tip. A non-nil error means the tip was not delivered.
type TipSink interface {
	Deliver(ctx context.Context, tip models.ProfessionalTip) error
}

// TipRecorder persists tip state changes for audit.
type TipRecorder interface {
	RecordTip(tip *models.GeneratedTip) error
}

// FailureNotifier is told when scanning starts failing and when it recovers.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, err error) error
	NotifyRecovery(ctx context.Context, failureCount int) error
}

type Predictor interface {
	Predict(snap *models.TelemetrySnapshot, method models.PredictionMethod) models.PredictionResult
}

type Evaluator interface {
	Evaluate(pred models.PredictionResult, odds models.MatchOdds, snap *models.TelemetrySnapshot) models.TipDecision
}

// Deps are the monitor's collaborators. Recorder, Notifier and Metrics are optional.
type Deps struct {
	Source    LiveMatchSource
	Odds      OddsSource
	Sink      TipSink
	Predictor Predictor
	Validator Evaluator
	Recorder  TipRecorder
	Notifier  FailureNotifier
	Metrics   *metrics.Recorder
}

type Config struct {
	Interval             time.Duration
	Leagues              []string
	MinGameTime          time.Duration
	MaxGameTime          time.Duration
	MinDataQuality       float64
	RequireCompleteDraft bool
	MaxTipsPerWindow     int
	RateWindow           time.Duration
	TipRetention         time.Duration
	EvictionGrace        time.Duration
	DedupRetention       time.Duration
	PredictionCacheTTL   time.Duration
	Method               models.PredictionMethod
	OddsConcurrency      int
}

func DefaultConfig() Config {
	return Config{
		Interval:           45 * time.Second,
		Leagues:            []string{"LCK", "LPL", "LEC", "LCS"},
		MinGameTime:        60 * time.Second,
		MaxGameTime:        10 * time.Minute,
		MinDataQuality:     0.5,
		MaxTipsPerWindow:   3,
		RateWindow:         time.Hour,
		TipRetention:       20 * time.Minute,
		EvictionGrace:      10 * time.Minute,
		PredictionCacheTTL: 5 * time.Minute,
		Method:             models.MethodHybrid,
		OddsConcurrency:    4,
	}
}

// CycleReport summarises one scan cycle.
type CycleReport struct {
	Fetched     int
	Suitable    int
	Duplicates  int
	Evaluated   int
	Generated   int
	Delivered   int
	Rejected    int
	OddsErrors  int
	Redelivered int
	Dropped     int
	Expired     int
	Evicted     int
	RateLimited bool
	FetchErr    error
	Duration    time.Duration
}

// Status describes the recent health of the scan loop.
type Status struct {
	ConsecutiveFailures int
	LastError           string
	LastAttempt         time.Time
	LastSuccess         time.Time
}

// IsReady reports whether a cycle has succeeded and scanning is not failing repeatedly.
func (s Status) IsReady() bool {
	if s.LastSuccess.IsZero() {
		return false
	}
	return s.ConsecutiveFailures < 3
}

type cachedPrediction struct {
	gameTime int
	result   models.PredictionResult
}

type candidate struct {
	snap  *models.TelemetrySnapshot
	mapID string
}

type oddsResult struct {
	odds models.MatchOdds
	err  error
}

// Monitor owns the dedup registry, rate window, tip table and prediction cache. Scans,
// sweeps and cleanups are serialized; read accessors may be called concurrently.
type Monitor struct {
	deps    Deps
	config  Config
	leagues map[string]struct{}
	now     func() time.Time

	cycleMu sync.Mutex

	mu          sync.RWMutex
	processed   *mapRegistry
	rate        *rateWindow
	tips        *tipTable
	predictions *ttlCache[cachedPrediction]
	stats       models.MonitoringStats
	status      Status
}

func New(deps Deps, config Config) *Monitor {
	if config.Method == "" {
		config.Method = models.MethodHybrid
	}
	if config.OddsConcurrency <= 0 {
		config.OddsConcurrency = 1
	}
	if config.Interval <= 0 {
		config.Interval = DefaultConfig().Interval
	}

	leagues := make(map[string]struct{}, len(config.Leagues))
	for _, l := range config.Leagues {
		leagues[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
	}

	m := &Monitor{
		deps:        deps,
		config:      config,
		leagues:     leagues,
		now:         time.Now,
		processed:   newMapRegistry(config.DedupRetention),
		rate:        newRateWindow(config.MaxTipsPerWindow, config.RateWindow),
		tips:        newTipTable(),
		predictions: newTTLCache[cachedPrediction](config.PredictionCacheTTL),
	}
	m.stats.StartedAt = m.now()
	return m
}

// Run scans immediately and then on every interval until ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	logger.Info("Monitor started, scanning every %s", m.config.Interval)
	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.ScanOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Monitor stopped")
			return
		case <-ticker.C:
			m.ScanOnce(ctx)
		}
	}
}

// ScanOnce runs one full cycle: sweep, redeliver pending tips, fetch, filter, evaluate.
func (m *Monitor) ScanOnce(ctx context.Context) CycleReport {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	start := m.now()
	var report CycleReport

	report.Expired, report.Evicted = m.sweep(start)
	report.Redelivered, report.Dropped = m.retryPending(ctx)

	snaps, err := m.deps.Source.FetchLiveMatches(ctx)
	if err != nil {
		logger.Warn("Failed to fetch live matches: %v", err)
		report.FetchErr = err
		snaps = nil
	}
	report.Fetched = len(snaps)
	m.deps.Metrics.AddMatchesScanned(len(snaps))

	candidates := m.selectCandidates(snaps, &report)
	odds := m.prefetchOdds(ctx, candidates)

	for i, c := range candidates {
		if ctx.Err() != nil {
			logger.Info("Scan cancelled, %d candidate(s) left unprocessed", len(candidates)-i)
			break
		}
		now := m.now()

		m.mu.Lock()
		dup := m.processed.Contains(c.mapID, now)
		available := m.rate.Available(now)
		m.mu.Unlock()

		if dup {
			report.Duplicates++
			continue
		}
		if !available {
			report.RateLimited = true
			m.deps.Metrics.RecordRateLimited()
			logger.Info("Tip rate limit reached (%d per %s), skipping remaining matches", m.config.MaxTipsPerWindow, m.config.RateWindow)
			break
		}

		m.evaluate(ctx, c, odds[i], &report)
	}

	report.Duration = m.now().Sub(start)
	m.finishCycle(ctx, &report)
	return report
}

func (m *Monitor) selectCandidates(snaps []models.TelemetrySnapshot, report *CycleReport) []candidate {
	now := m.now()
	var out []candidate
	for i := range snaps {
		snap := &snaps[i]
		if ok, why := m.suitable(snap); !ok {
			logger.Debug("Skipping match %s: %s", snap.MatchID, why)
			continue
		}
		report.Suitable++

		mapID := MapIdentifier(snap)
		m.mu.RLock()
		dup := m.processed.Contains(mapID, now)
		m.mu.RUnlock()
		if dup {
			report.Duplicates++
			continue
		}
		out = append(out, candidate{snap: snap, mapID: mapID})
	}
	return out
}

func (m *Monitor) prefetchOdds(ctx context.Context, candidates []candidate) []oddsResult {
	results := make([]oddsResult, len(candidates))
	if len(candidates) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(m.config.OddsConcurrency)
	for i, c := range candidates {
		g.Go(func() error {
			o, err := m.deps.Odds.FetchOdds(ctx, c.snap.MatchID)
			results[i] = oddsResult{odds: o, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (m *Monitor) evaluate(ctx context.Context, c candidate, odds oddsResult, report *CycleReport) {
	snap := c.snap
	if odds.err != nil {
		report.OddsErrors++
		logger.Warn("No odds for match %s: %v", snap.MatchID, odds.err)
		return
	}

	pred := m.predict(snap)
	report.Evaluated++

	decision := m.deps.Validator.Evaluate(pred, odds.odds, snap)
	if !decision.Accepted || decision.Tip == nil {
		report.Rejected++
		m.mu.Lock()
		m.stats.TipsRejected++
		m.mu.Unlock()
		m.deps.Metrics.RecordRejection(string(decision.Reason))
		logger.Debug("Rejected %s (%s): %s, %s", snap.MatchID, c.mapID, decision.Reason.Message(), decision.Detail)
		return
	}

	tip := *decision.Tip
	tip.MapID = c.mapID
	now := m.now()

	m.mu.Lock()
	if m.processed.Contains(c.mapID, now) || !m.rate.TryReserve(now) {
		m.mu.Unlock()
		report.RateLimited = true
		return
	}
	m.processed.MarkProcessed(c.mapID, now)
	gt := models.NewGeneratedTip(tip, *snap, now)
	m.tips.Put(gt)
	m.stats.TipsGenerated++
	m.mu.Unlock()

	report.Generated++
	m.deps.Metrics.RecordTip(metrics.OutcomeGenerated)
	logger.Info("Generated tip %s: %s @ %.2f (%s, EV %.2f%%, %.1f units)",
		tip.ID, tip.RecommendedTeam, tip.Odds, tip.MapID, tip.EVPct, tip.Units)
	m.record(gt)

	if m.deliver(ctx, gt) {
		report.Delivered++
	}
}

// predict reuses a cached prediction while the game clock has not moved.
func (m *Monitor) predict(snap *models.TelemetrySnapshot) models.PredictionResult {
	now := m.now()
	m.mu.RLock()
	cached, ok := m.predictions.Get(snap.MatchID, now)
	m.mu.RUnlock()
	if ok && cached.gameTime == snap.GameTime {
		return cached.result
	}

	res := m.deps.Predictor.Predict(snap, m.config.Method)
	m.mu.Lock()
	m.predictions.Put(snap.MatchID, cachedPrediction{gameTime: snap.GameTime, result: res}, now)
	m.mu.Unlock()
	return res
}

func (m *Monitor) deliver(ctx context.Context, gt *models.GeneratedTip) bool {
	if err := m.deps.Sink.Deliver(ctx, gt.Tip); err != nil {
		m.deps.Metrics.RecordTip(metrics.OutcomeDeliveryFailed)
		logger.Warn("Failed to deliver tip %s, will retry: %v", gt.Tip.ID, err)
		return false
	}

	m.mu.Lock()
	err := gt.Transition(models.TipSent, m.now())
	if err == nil {
		m.stats.TipsSent++
	}
	m.mu.Unlock()
	if err != nil {
		logger.Error("Tip %s: %v", gt.Tip.ID, err)
		return false
	}

	m.deps.Metrics.RecordTip(metrics.OutcomeSent)
	m.record(gt)
	return true
}

// retryPending redelivers GENERATED tips still within retention and drops the rest.
func (m *Monitor) retryPending(ctx context.Context) (redelivered, dropped int) {
	now := m.now()
	var pending []*models.GeneratedTip

	m.mu.Lock()
	for _, gt := range m.tips.Sorted() {
		if gt.Status != models.TipGenerated {
			continue
		}
		if now.Sub(gt.GeneratedAt) >= m.config.TipRetention {
			m.tips.Delete(gt.Tip.ID)
			dropped++
			m.deps.Metrics.RecordTip(metrics.OutcomeDeliveryDropped)
			logger.Warn("Dropping undelivered tip %s for %s", gt.Tip.ID, gt.Tip.MapID)
			continue
		}
		pending = append(pending, gt)
	}
	m.mu.Unlock()

	for _, gt := range pending {
		if ctx.Err() != nil {
			break
		}
		if m.deliver(ctx, gt) {
			redelivered++
		}
	}
	return redelivered, dropped
}

// SweepExpired expires SENT tips past retention and evicts EXPIRED tips past the grace period.
func (m *Monitor) SweepExpired() (expired, evicted int) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()
	return m.sweep(m.now())
}

func (m *Monitor) sweep(now time.Time) (expired, evicted int) {
	var changed []*models.GeneratedTip

	m.mu.Lock()
	for _, gt := range m.tips.Sorted() {
		switch gt.Status {
		case models.TipSent:
			if now.Sub(gt.SentAt) < m.config.TipRetention {
				continue
			}
			if err := gt.Transition(models.TipExpired, now); err != nil {
				logger.Error("Tip %s: %v", gt.Tip.ID, err)
				continue
			}
			expired++
			m.stats.TipsExpired++
			changed = append(changed, gt)
		case models.TipExpired:
			if now.Sub(gt.ExpiredAt) >= m.config.EvictionGrace {
				m.tips.Delete(gt.Tip.ID)
				evicted++
			}
		}
	}
	active := m.tips.Len()
	m.mu.Unlock()

	for _, gt := range changed {
		m.deps.Metrics.RecordTip(metrics.OutcomeExpired)
		m.record(gt)
	}
	m.deps.Metrics.SetActiveTips(active)
	if expired > 0 || evicted > 0 {
		logger.Debug("Sweep: %d tip(s) expired, %d evicted", expired, evicted)
	}
	return expired, evicted
}

// Cleanup prunes expired dedup entries, stale predictions and old rate-window stamps.
func (m *Monitor) Cleanup() {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	now := m.now()
	m.mu.Lock()
	maps := m.processed.Prune(now)
	preds := m.predictions.Prune(now)
	m.rate.prune(now)
	m.mu.Unlock()

	logger.Debug("Cleanup: pruned %d map(s), %d prediction(s)", maps, preds)
}

// RestoreProcessed marks previously tipped maps as processed at the time each tip was
// generated, typically from the audit log after a restart. A zero time counts as now.
func (m *Monitor) RestoreProcessed(maps map[string]time.Time) {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	now := m.now()
	m.mu.Lock()
	for id, at := range maps {
		if id == "" {
			continue
		}
		if at.IsZero() || at.After(now) {
			at = now
		}
		m.processed.MarkProcessed(id, at)
	}
	m.mu.Unlock()
}

// ClearProcessed forgets every processed map identifier.
func (m *Monitor) ClearProcessed() int {
	m.cycleMu.Lock()
	defer m.cycleMu.Unlock()

	m.mu.Lock()
	n := m.processed.Clear()
	m.mu.Unlock()
	logger.Info("Cleared %d processed map(s)", n)
	return n
}

func (m *Monitor) Stats() models.MonitoringStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stats
}

// ActiveTips returns copies of the tips still held, oldest first.
func (m *Monitor) ActiveTips() []models.GeneratedTip {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sorted := m.tips.Sorted()
	out := make([]models.GeneratedTip, 0, len(sorted))
	for _, gt := range sorted {
		out = append(out, *gt)
	}
	return out
}

func (m *Monitor) Status() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Healthy is a metrics.HealthFunc.
func (m *Monitor) Healthy(context.Context) error {
	st := m.Status()
	if st.IsReady() {
		return nil
	}
	if st.LastError != "" {
		return errors.New(st.LastError)
	}
	return errors.New("no successful scan yet")
}

func (m *Monitor) record(gt *models.GeneratedTip) {
	if m.deps.Recorder == nil {
		return
	}
	m.mu.RLock()
	snapshot := *gt
	m.mu.RUnlock()
	if err := m.deps.Recorder.RecordTip(&snapshot); err != nil {
		logger.Warn("Failed to record tip %s: %v", gt.Tip.ID, err)
	}
}

// finishCycle updates counters and status, notifying on the first failure and on recovery.
func (m *Monitor) finishCycle(ctx context.Context, report *CycleReport) {
	now := m.now()

	m.mu.Lock()
	m.stats.Cycles++
	m.stats.MatchesScanned += report.Fetched
	m.status.LastAttempt = now
	prevFailures := m.status.ConsecutiveFailures
	if report.FetchErr != nil {
		m.status.ConsecutiveFailures++
		m.status.LastError = report.FetchErr.Error()
	} else {
		m.status.ConsecutiveFailures = 0
		m.status.LastError = ""
		m.status.LastSuccess = now
	}
	active := m.tips.Len()
	m.mu.Unlock()

	m.deps.Metrics.RecordCycle(report.Duration, report.FetchErr)
	m.deps.Metrics.SetActiveTips(active)

	if report.FetchErr != nil {
		if prevFailures == 0 && m.deps.Notifier != nil {
			if err := m.deps.Notifier.NotifyFailure(ctx, report.FetchErr); err != nil {
				logger.Error("Failed to send error notification: %v", err)
			}
		}
		return
	}
	if prevFailures > 0 {
		logger.Info("Recovered after %d consecutive failure(s)", prevFailures)
		if m.deps.Notifier != nil {
			if err := m.deps.Notifier.NotifyRecovery(ctx, prevFailures); err != nil {
				logger.Error("Failed to send recovery notification: %v", err)
			}
		}
	}

	logger.Info("Cycle: %d fetched, %d suitable, %d evaluated, %d generated, %d delivered, %d rejected",
		report.Fetched, report.Suitable, report.Evaluated, report.Generated, report.Delivered, report.Rejected)
}
