package debugstats

import (
	"context"
	"fmt"
	"github.com/lefinal/ctf-server/games"
	"github.com/lefinal/ctf-server/service"
	"go.uber.org/zap"
	"runtime"
	"time"
)

type Config struct {
	// IsEnabled describes whether periodic debug stats logging is desired.
	IsEnabled bool
	// Interval in which to log debug stats.
	Interval time.Duration
}

// Sources provide the server state to include in the stats.
type Sources struct {
	Match interface {
		Status() games.Status
		AllFlagsRegistered() bool
	}
	Hub interface {
		ClientCount() int
	}
	Relay interface {
		Dropped() uint64
	}
}

// Stats is a snapshot of the system and server state.
type Stats struct {
	NumCPU        int
	NumGoroutine  int
	MemoryUsageMB uint64
	Phase         games.Phase
	PhaseName     string
	Paused        bool
	AllFlags      bool
	Players       int
	WSClients     int
	DroppedEvents uint64
}

type debugStatsService struct {
	logger  *zap.Logger
	config  Config
	sources Sources
}

func NewService(logger *zap.Logger, config Config, sources Sources) (service.Service, error) {
	return &debugStatsService{
		logger:  logger,
		config:  config,
		sources: sources,
	}, nil
}

func (s *debugStatsService) Run(ctx context.Context) error {
	if !s.config.IsEnabled {
		return nil
	}
	s.logger.Debug(fmt.Sprintf("logging system state every %gs", s.config.Interval.Seconds()))
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			logStats(s.logger, collect(s.sources))
		}
	}
}

// collect the current Stats from the runtime and the given Sources. Missing
// sources are skipped.
func collect(sources Sources) Stats {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	stats := Stats{
		NumCPU:        runtime.NumCPU(),
		NumGoroutine:  runtime.NumGoroutine(),
		MemoryUsageMB: memStats.Sys / 1000 / 1000,
	}
	if sources.Match != nil {
		status := sources.Match.Status()
		stats.Phase = status.Phase
		stats.PhaseName = games.PhaseDisplayName(status.Phase)
		stats.AllFlags = sources.Match.AllFlagsRegistered()
		stats.Paused = status.Paused
		stats.Players = len(status.Players)
	}
	if sources.Hub != nil {
		stats.WSClients = sources.Hub.ClientCount()
	}
	if sources.Relay != nil {
		stats.DroppedEvents = sources.Relay.Dropped()
	}
	return stats
}

// logStats logs the given Stats to the zap.Logger.
func logStats(logger *zap.Logger, stats Stats) {
	logger.Debug("debug system stats",
		zap.Int("num_cpu", stats.NumCPU),
		zap.Int("num_goroutine", stats.NumGoroutine),
		zap.Uint64("memory_in_use_mb", stats.MemoryUsageMB),
		zap.Any("match_phase", stats.Phase),
		zap.String("match_phase_name", stats.PhaseName),
		zap.Bool("match_paused", stats.Paused),
		zap.Bool("all_flags_registered", stats.AllFlags),
		zap.Int("players", stats.Players),
		zap.Int("ws_clients", stats.WSClients),
		zap.Uint64("dropped_events", stats.DroppedEvents))
}
