package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/syssam/typeddal/dialect"
)

// CommandStats holds command execution statistics.
type CommandStats struct {
	// TotalQueries is the total number of scalar queries executed.
	TotalQueries atomic.Int64
	// TotalExecs is the total number of non-query commands executed.
	TotalExecs atomic.Int64
	// TotalDuration is the total time spent executing commands.
	TotalDuration atomic.Int64 // nanoseconds
	// RowsAffected is the total number of rows affected by non-query commands.
	RowsAffected atomic.Int64
	// SlowCommands is the count of commands exceeding the slow threshold.
	SlowCommands atomic.Int64
	// Errors is the count of command errors.
	Errors atomic.Int64
}

// Stats returns a snapshot of the current statistics.
func (s *CommandStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.TotalQueries.Load(),
		TotalExecs:    s.TotalExecs.Load(),
		TotalDuration: time.Duration(s.TotalDuration.Load()),
		RowsAffected:  s.RowsAffected.Load(),
		SlowCommands:  s.SlowCommands.Load(),
		Errors:        s.Errors.Load(),
	}
}

// Reset resets all statistics to zero.
func (s *CommandStats) Reset() {
	s.TotalQueries.Store(0)
	s.TotalExecs.Store(0)
	s.TotalDuration.Store(0)
	s.RowsAffected.Store(0)
	s.SlowCommands.Store(0)
	s.Errors.Store(0)
}

// StatsSnapshot is a point-in-time snapshot of command statistics.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	RowsAffected  int64
	SlowCommands  int64
	Errors        int64
}

// AvgDuration returns the average command duration.
func (s StatsSnapshot) AvgDuration() time.Duration {
	total := s.TotalQueries + s.TotalExecs
	if total == 0 {
		return 0
	}
	return s.TotalDuration / time.Duration(total)
}

// String returns a human-readable summary of the statistics.
func (s StatsSnapshot) String() string {
	return fmt.Sprintf(
		"queries=%d execs=%d rows=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.RowsAffected, s.TotalDuration, s.AvgDuration(),
		s.SlowCommands, s.Errors,
	)
}

// SlowCommandHook is a function called when a slow command is detected.
type SlowCommandHook func(ctx context.Context, cmd *dialect.Command, duration time.Duration)

// StatsConn wraps an Execer with command statistics collection.
type StatsConn struct {
	Execer
	stats         *CommandStats
	slowThreshold time.Duration
	slowHook      SlowCommandHook
	mu            sync.RWMutex
}

// StatsOption configures the StatsConn.
type StatsOption func(*StatsConn)

// WithSlowThreshold sets the threshold for slow command detection.
// Commands taking longer than this duration are counted as slow.
// Default is 100ms.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsConn) {
		s.slowThreshold = d
	}
}

// WithSlowCommandHook sets a callback function for slow commands.
func WithSlowCommandHook(hook SlowCommandHook) StatsOption {
	return func(s *StatsConn) {
		s.slowHook = hook
	}
}

// WithSlowCommandLog logs slow commands to the given logger, or to the
// default logger when l is nil.
func WithSlowCommandLog(l *slog.Logger) StatsOption {
	if l == nil {
		l = slog.Default()
	}
	return WithSlowCommandHook(func(ctx context.Context, cmd *dialect.Command, duration time.Duration) {
		l.WarnContext(ctx, "slow command detected", "duration", duration, "command", cmd.Text, "params", len(cmd.Params))
	})
}

// NewStatsConn wraps an Execer with statistics collection.
//
// Example:
//
//	conn, _ := sql.Open(info)
//	stats := sql.NewStatsConn(conn,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithSlowCommandLog(logger),
//	)
//	_, err := sql.NewUpdate("users").
//	    AddColumnModification(sql.NewColumnValue("name", "a8m")).
//	    AddCondition(sql.EQ("id", 1)).
//	    Execute(ctx, stats)
//
//	// Later, check statistics:
//	fmt.Println(stats.CommandStats().Stats())
func NewStatsConn(ex Execer, opts ...StatsOption) *StatsConn {
	s := &StatsConn{
		Execer:        ex,
		stats:         &CommandStats{},
		slowThreshold: 100 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CommandStats returns the underlying CommandStats for reading statistics.
func (s *StatsConn) CommandStats() *CommandStats {
	return s.stats
}

// SlowThreshold returns the current slow command threshold.
func (s *StatsConn) SlowThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.slowThreshold
}

// SetSlowThreshold updates the slow command threshold.
func (s *StatsConn) SetSlowThreshold(threshold time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slowThreshold = threshold
}

// ExecCommand executes a command and records statistics.
func (s *StatsConn) ExecCommand(ctx context.Context, cmd *dialect.Command) (int64, error) {
	start := time.Now()
	n, err := s.Execer.ExecCommand(ctx, cmd)
	s.stats.TotalExecs.Add(1)
	s.stats.RowsAffected.Add(n)
	s.record(ctx, cmd, start, err)
	return n, err
}

// QueryScalar executes a query and records statistics.
func (s *StatsConn) QueryScalar(ctx context.Context, cmd *dialect.Command) (any, error) {
	start := time.Now()
	v, err := s.Execer.QueryScalar(ctx, cmd)
	s.stats.TotalQueries.Add(1)
	s.record(ctx, cmd, start, err)
	return v, err
}

// Session pins a session of the wrapped executor. Commands run on the
// session are recorded in the same statistics.
func (s *StatsConn) Session(ctx context.Context) (Execer, func() error, error) {
	ss, ok := s.Execer.(Sessioner)
	if !ok {
		return s, func() error { return nil }, nil
	}
	ex, release, err := ss.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return &StatsConn{
		Execer:        ex,
		stats:         s.stats,
		slowThreshold: s.slowThreshold,
		slowHook:      s.slowHook,
	}, release, nil
}

func (s *StatsConn) record(ctx context.Context, cmd *dialect.Command, start time.Time, err error) {
	duration := time.Since(start)
	s.stats.TotalDuration.Add(int64(duration))
	if err != nil {
		s.stats.Errors.Add(1)
	}

	s.mu.RLock()
	threshold := s.slowThreshold
	hook := s.slowHook
	s.mu.RUnlock()

	if duration > threshold {
		s.stats.SlowCommands.Add(1)
		if hook != nil {
			hook(ctx, cmd, duration)
		}
	}
}

// DebugConn wraps an Execer with debug logging of every command.
type DebugConn struct {
	Execer
	log *slog.Logger
}

// DebugOption configures the DebugConn.
type DebugOption func(*DebugConn)

// DebugWithLogger sets the logger. Default is slog.Default().
func DebugWithLogger(l *slog.Logger) DebugOption {
	return func(d *DebugConn) {
		d.log = l
	}
}

// NewDebugConn wraps an Execer with debug logging.
func NewDebugConn(ex Execer, opts ...DebugOption) *DebugConn {
	d := &DebugConn{Execer: ex, log: slog.Default()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ExecCommand logs and executes a command.
func (d *DebugConn) ExecCommand(ctx context.Context, cmd *dialect.Command) (int64, error) {
	d.log.DebugContext(ctx, "exec", "command", cmd.String())
	return d.Execer.ExecCommand(ctx, cmd)
}

// QueryScalar logs and executes a query.
func (d *DebugConn) QueryScalar(ctx context.Context, cmd *dialect.Command) (any, error) {
	d.log.DebugContext(ctx, "query", "command", cmd.String())
	return d.Execer.QueryScalar(ctx, cmd)
}

// Session pins a session of the wrapped executor with the same logger.
func (d *DebugConn) Session(ctx context.Context) (Execer, func() error, error) {
	ss, ok := d.Execer.(Sessioner)
	if !ok {
		return d, func() error { return nil }, nil
	}
	ex, release, err := ss.Session(ctx)
	if err != nil {
		return nil, nil, err
	}
	d.log.DebugContext(ctx, "session acquired")
	return &DebugConn{Execer: ex, log: d.log}, release, nil
}

// OpenWithStats opens the dialect's database with statistics collection
// enabled.
func OpenWithStats(info dialect.Info, opts ...StatsOption) (*StatsConn, error) {
	conn, err := Open(info)
	if err != nil {
		return nil, err
	}
	return NewStatsConn(conn, opts...), nil
}

// Close closes the wrapped executor when it supports closing.
func (s *StatsConn) Close() error {
	if c, ok := s.Execer.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

// Ensure interfaces are implemented.
var (
	_ Execer    = (*StatsConn)(nil)
	_ Sessioner = (*StatsConn)(nil)
	_ Execer    = (*DebugConn)(nil)
	_ Sessioner = (*DebugConn)(nil)
)
