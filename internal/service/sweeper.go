package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/galley-app/galley/internal/lock"
	"github.com/galley-app/galley/internal/metrics"
)

// TokenSweeper periodically removes expired auth tokens.
type TokenSweeper struct {
	tokens  *TokenService
	locker  lock.Locker
	metrics *metrics.Metrics
	logger  zerolog.Logger
	config  SweeperConfig

	// Control
	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}
}

// SweeperConfig contains token sweeper configuration.
type SweeperConfig struct {
	// Enabled determines if the sweeper runs automatically.
	Enabled bool

	// Interval is how often to run the sweep.
	Interval time.Duration
}

// DefaultSweeperConfig returns sensible defaults.
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Enabled:  true,
		Interval: 1 * time.Hour,
	}
}

// NewTokenSweeper creates a new token sweeper.
func NewTokenSweeper(
	tokens *TokenService,
	locker lock.Locker,
	m *metrics.Metrics,
	logger zerolog.Logger,
	config SweeperConfig,
) *TokenSweeper {
	return &TokenSweeper{
		tokens:   tokens,
		locker:   locker,
		metrics:  m,
		logger:   logger.With().Str("service", "sweeper").Logger(),
		config:   config,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the sweep scheduler.
func (s *TokenSweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Dur("interval", s.config.Interval).
		Msg("Starting token sweeper")

	go s.runLoop()
}

// Stop stops the sweep scheduler.
func (s *TokenSweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	close(s.stopChan)
	<-s.doneChan

	s.logger.Info().Msg("Token sweeper stopped")
}

// runLoop is the main sweep loop.
func (s *TokenSweeper) runLoop() {
	defer close(s.doneChan)

	// Run immediately on start
	s.RunOnce(context.Background())

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.RunOnce(context.Background())
		case <-s.stopChan:
			return
		}
	}
}

// SweepResult contains the result of a sweep run.
type SweepResult struct {
	// TokensDeleted is the number of expired tokens removed.
	TokensDeleted int64

	// Skipped reports that another instance held the sweep lock.
	Skipped bool

	// Duration is how long the run took.
	Duration time.Duration
}

// RunOnce executes a single sweep. It can be called manually or by the
// scheduler; a distributed lock keeps concurrent instances from sweeping
// at the same time.
func (s *TokenSweeper) RunOnce(ctx context.Context) SweepResult {
	start := time.Now()
	result := SweepResult{}

	lockKey := lock.Keys.TokenGC()
	lockTTL := s.config.Interval / 2
	if lockTTL < 5*time.Minute {
		lockTTL = 5 * time.Minute
	}

	acquired, err := s.locker.Acquire(ctx, lockKey, lockTTL)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to acquire sweep lock")
		result.Duration = time.Since(start)
		return result
	}
	if !acquired {
		s.logger.Debug().Msg("Sweep lock held by another process, skipping run")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}
	defer func() {
		if _, err := s.locker.Release(ctx, lockKey); err != nil {
			s.logger.Error().Err(err).Msg("Failed to release sweep lock")
		}
	}()

	deleted, err := s.tokens.CleanupExpired(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete expired tokens")
		result.Duration = time.Since(start)
		return result
	}

	result.TokensDeleted = deleted
	result.Duration = time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordSweep(result.Duration, result.TokensDeleted)
	}

	if deleted > 0 {
		s.logger.Info().
			Int64("tokens_deleted", deleted).
			Dur("duration", result.Duration).
			Msg("Token sweep completed")
	} else {
		s.logger.Debug().Msg("No expired tokens found")
	}

	return result
}
