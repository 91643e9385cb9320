package discovery

import (
	"context"
	"errors"
	"time"

	nmap "github.com/Ullaakut/nmap/v3"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"modbusmgr/internal/domain"
	"modbusmgr/internal/service"
)

// DefaultInterval is the wait between the end of one cycle and the next
const DefaultInterval = 90 * time.Second

// Scanner runs the external scan against a target
type Scanner interface {
	Scan(ctx context.Context, target string) (*nmap.Run, error)
}

// Reconciler converges the registry to an observed peripheral set
type Reconciler interface {
	Reconcile(ctx context.Context, observed []domain.Peripheral) (service.Result, error)
}

// CycleReport summarizes one scan → parse → normalize → reconcile pass
type CycleReport struct {
	ID       string        `json:"id"`
	Target   string        `json:"target"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`

	Findings int `json:"findings"`
	Rejected int `json:"rejected"`
	Dropped  int `json:"dropped"`

	Peripherals []domain.Peripheral `json:"peripherals,omitempty"`
	Result      service.Result      `json:"result"`

	// Reconciled is false when the cycle stopped before touching the registry
	Reconciled bool  `json:"reconciled"`
	Err        error `json:"-"`
}

// Loop runs discovery cycles until its context is cancelled
type Loop struct {
	scanner    Scanner
	parser     *Parser
	normalizer *Normalizer
	reconciler Reconciler
	target     string
	interval   time.Duration
	wake       chan struct{}
	log        zerolog.Logger
}

// LoopOption configures a Loop
type LoopOption func(*Loop)

// WithInterval sets the idle wait between cycles
func WithInterval(d time.Duration) LoopOption {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithParser replaces the default parser
func WithParser(p *Parser) LoopOption {
	return func(l *Loop) {
		if p != nil {
			l.parser = p
		}
	}
}

// NewLoop creates a discovery loop scanning target
func NewLoop(scanner Scanner, reconciler Reconciler, target string, log zerolog.Logger, opts ...LoopOption) *Loop {
	l := &Loop{
		scanner:    scanner,
		parser:     NewParser(log),
		normalizer: NewNormalizer(log),
		reconciler: reconciler,
		target:     target,
		interval:   DefaultInterval,
		wake:       make(chan struct{}, 1),
		log:        log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Wake cuts the current idle wait short. Wakes arriving while a cycle runs
// coalesce into a single extra cycle.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run alternates between Scanning and Idle until ctx is cancelled.
// No cycle starts once cancellation has been requested.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().
		Str("target", l.target).
		Dur("interval", l.interval).
		Msg("Starting Modbus discovery loop")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("Discovery loop stopped")
			return nil
		case <-timer.C:
		case <-l.wake:
			l.log.Debug().Msg("Discovery loop woken early")
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}

		// select picks randomly among ready cases
		if ctx.Err() != nil {
			l.log.Info().Msg("Discovery loop stopped")
			return nil
		}

		l.RunOnce(ctx)
		timer.Reset(l.interval)
	}
}

// RunOnce performs a single cycle and logs its outcome. Errors are reported
// in the returned CycleReport and never propagate past the cycle.
func (l *Loop) RunOnce(ctx context.Context) CycleReport {
	report := CycleReport{
		ID:      uuid.NewString(),
		Target:  l.target,
		Started: time.Now(),
	}
	log := l.log.With().Str("cycle_id", report.ID).Logger()

	l.cycle(ctx, log, &report)
	report.Duration = time.Since(report.Started)

	event := log.Info()
	if report.Err != nil {
		event = log.Error().Err(report.Err)
	}
	event.
		Str("target", report.Target).
		Dur("duration", report.Duration).
		Int("findings", report.Findings).
		Int("rejected", report.Rejected).
		Int("dropped", report.Dropped).
		Bool("reconciled", report.Reconciled).
		Int("kept", len(report.Result.Kept)).
		Int("created", len(report.Result.Created)).
		Int("deleted", len(report.Result.Deleted)).
		Int("retired", len(report.Result.Retired)).
		Int("failed", len(report.Result.Failed)).
		Msg("Discovery cycle finished")

	return report
}

func (l *Loop) cycle(ctx context.Context, log zerolog.Logger, report *CycleReport) {
	log.Info().Str("target", l.target).Msg("Scanning for Modbus devices")

	run, err := l.scanner.Scan(ctx, l.target)
	if err != nil {
		report.Err = err
		return
	}

	findings, err := l.parser.Parse(run)
	switch {
	case errors.Is(err, ErrNoOpenPorts):
		log.Warn().Msg("No open ports found in scan result")
	case err != nil:
		report.Err = err
		return
	}

	report.Findings = len(findings.Items)
	report.Rejected = findings.Rejected

	obs := l.normalizer.NormalizeAll(findings.Items)
	report.Dropped = obs.Dropped
	report.Peripherals = obs.Peripherals

	if l.reconciler == nil {
		return
	}

	result, err := l.reconciler.Reconcile(ctx, obs.Peripherals)
	report.Result = result
	if err != nil {
		report.Err = err
		return
	}
	report.Reconciled = true
}
