// Package monitor polls a configured set of opportunity templates through
// the engine's read-only evaluation surface and reports the profitable
// ones. It never trades on its own unless auto-execution is explicitly
// enabled.
package monitor

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/michaelpento.lv/arbengine/engine"
	"github.com/michaelpento.lv/arbengine/types"
)

// Config controls the polling monitor.
type Config struct {
	Interval      time.Duration
	MaxPerCycle   int
	MinConfidence float64
	AutoExecute   bool
	CacheSize     int
	RateLimit     rate.Limit
	Burst         int
}

// Opportunity is one profitable evaluation with its scoring.
type Opportunity struct {
	Request    types.OpportunityRequest
	Profit     *big.Int
	Confidence float64
	Risk       string
	Detected   time.Time
}

// Monitor drives evaluation cycles.
type Monitor struct {
	eng     *engine.Engine
	pairs   []types.OpportunityRequest
	cfg     Config
	limiter *rate.Limiter
	seen    *lru.Cache
	log     *zap.Logger

	metrics struct {
		cycles        prometheus.Counter
		opportunities prometheus.Counter
		deduped       prometheus.Counter
		executions    prometheus.Counter
	}
}

func New(eng *engine.Engine, pairs []types.OpportunityRequest, cfg Config, log *zap.Logger) (*Monitor, error) {
	if cfg.Interval <= 0 {
		return nil, fmt.Errorf("monitor interval must be positive")
	}
	if cfg.MaxPerCycle <= 0 {
		cfg.MaxPerCycle = 10
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 256
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = rate.Limit(10)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 20
	}
	if log == nil {
		log = zap.NewNop()
	}
	seen, err := lru.New(cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create dedupe cache: %w", err)
	}

	m := &Monitor{
		eng:     eng,
		pairs:   pairs,
		cfg:     cfg,
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.Burst),
		seen:    seen,
		log:     log,
	}

	m.metrics.cycles = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbmonitor_cycles_total",
		Help: "Number of completed monitoring cycles",
	})
	m.metrics.opportunities = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbmonitor_opportunities_total",
		Help: "Number of profitable opportunities reported",
	})
	m.metrics.deduped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbmonitor_deduped_total",
		Help: "Number of opportunities suppressed as recently seen",
	})
	m.metrics.executions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "arbmonitor_auto_executions_total",
		Help: "Number of auto-executed opportunities",
	})

	return m, nil
}

// Register adds the monitor's instruments to reg.
func (m *Monitor) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{
		m.metrics.cycles, m.metrics.opportunities,
		m.metrics.deduped, m.metrics.executions,
	} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Run polls until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info("monitor started",
		zap.Int("pairs", len(m.pairs)),
		zap.Duration("interval", m.cfg.Interval))
	defer m.log.Info("monitor stopped")

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			opps := m.ScanOnce(ctx)
			m.report(ctx, opps)
		}
	}
}

// ScanOnce evaluates every configured pair once, rate limited, and
// returns the profitable opportunities sorted by configuration order,
// capped at MaxPerCycle.
func (m *Monitor) ScanOnce(ctx context.Context) []Opportunity {
	defer m.metrics.cycles.Inc()

	var opps []Opportunity
	for _, req := range m.pairs {
		if len(opps) >= m.cfg.MaxPerCycle {
			break
		}
		if err := m.limiter.Wait(ctx); err != nil {
			return opps
		}

		profit, err := m.eng.Evaluate(ctx, req)
		if err != nil {
			m.log.Warn("evaluation failed",
				zap.String("token_a", req.TokenA.Hex()),
				zap.String("token_b", req.TokenB.Hex()),
				zap.Error(err))
			continue
		}
		if profit.Sign() == 0 {
			continue
		}

		opp := Opportunity{
			Request:    req,
			Profit:     profit,
			Confidence: confidence(req, profit),
			Risk:       riskLevel(req, profit),
			Detected:   time.Now(),
		}
		if opp.Confidence < m.cfg.MinConfidence {
			continue
		}
		if m.recentlySeen(opp) {
			m.metrics.deduped.Inc()
			continue
		}
		opps = append(opps, opp)
	}
	return opps
}

func (m *Monitor) report(ctx context.Context, opps []Opportunity) {
	for _, opp := range opps {
		m.metrics.opportunities.Inc()
		m.log.Info("arbitrage opportunity",
			zap.String("token_a", opp.Request.TokenA.Hex()),
			zap.String("token_b", opp.Request.TokenB.Hex()),
			zap.String("venue1", opp.Request.Venue1.Hex()),
			zap.String("venue2", opp.Request.Venue2.Hex()),
			zap.Bool("reverse", opp.Request.ReverseOnVenue2),
			zap.String("profit", opp.Profit.String()),
			zap.Float64("confidence", opp.Confidence),
			zap.String("risk", opp.Risk))

		if !m.cfg.AutoExecute {
			continue
		}
		outcome, err := m.eng.Execute(ctx, m.eng.Owner(), opp.Request)
		if err != nil {
			m.log.Warn("auto-execution failed", zap.Error(err))
			continue
		}
		m.metrics.executions.Inc()
		m.log.Info("auto-executed",
			zap.String("realized_profit", outcome.Profit.String()))
	}
}

// recentlySeen dedupes on a digest of the pair, venues, direction and the
// profit bucket, so a persisting opportunity is reported once rather than
// every cycle.
func (m *Monitor) recentlySeen(opp Opportunity) bool {
	key := digest(opp)
	if m.seen.Contains(key) {
		return true
	}
	m.seen.Add(key, opp.Detected)
	return false
}

func digest(opp Opportunity) uint64 {
	h := xxhash.New()
	h.Write(opp.Request.TokenA.Bytes())
	h.Write(opp.Request.TokenB.Bytes())
	h.Write(opp.Request.Venue1.Bytes())
	h.Write(opp.Request.Venue2.Bytes())
	h.Write(opp.Request.AmountIn.Bytes())
	if opp.Request.ReverseOnVenue2 {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	h.Write([]byte(profitBucket(opp).String()))
	return h.Sum64()
}

// profitBucket quantizes profit to margin deciles so small quote jitter
// does not defeat deduplication.
func profitBucket(opp Opportunity) *big.Int {
	margin := marginBps(opp.Request.AmountIn, opp.Profit)
	return big.NewInt(margin / 10)
}

// marginBps is profit relative to the capital at risk, in basis points.
func marginBps(amountIn, profit *big.Int) int64 {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return 0
	}
	bps := new(big.Int).Mul(profit, big.NewInt(10000))
	bps.Div(bps, amountIn)
	if !bps.IsInt64() {
		return int64(1 << 30)
	}
	return bps.Int64()
}

// confidence scores an opportunity from its profit margin. Thin margins
// evaporate between quote and execution far more often than fat ones.
func confidence(req types.OpportunityRequest, profit *big.Int) float64 {
	bps := marginBps(req.AmountIn, profit)
	score := 0.5
	switch {
	case bps >= 100: // >= 1%
		score += 0.4
	case bps >= 50:
		score += 0.3
	case bps >= 20:
		score += 0.2
	case bps >= 5:
		score += 0.1
	}
	if req.ReverseOnVenue2 {
		// Round trips settle back into the input token; the comparison
		// mode leaves inventory exposed in tokenB.
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

func riskLevel(req types.OpportunityRequest, profit *big.Int) string {
	bps := marginBps(req.AmountIn, profit)
	switch {
	case bps >= 50:
		return "low"
	case bps >= 10:
		return "medium"
	default:
		return "high"
	}
}
