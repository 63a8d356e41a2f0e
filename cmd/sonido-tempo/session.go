package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RyanBlaney/sonido-tempo/internal/cli"
	"github.com/RyanBlaney/sonido-tempo/internal/ui"
	"github.com/RyanBlaney/sonido-tempo/live"
	"github.com/RyanBlaney/sonido-tempo/logging"
)

const (
	monitorQueueSize = 64
	positionInterval = 100 * time.Millisecond
)

// session runs a Monitor for one live command
type session struct {
	monitor *live.Monitor
	noUI    bool
	program *tea.Program

	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
	logger   logging.Logger
}

func newSession(app *CLI, flags LiveFlags, sampleRate float64) (*session, error) {
	if !flags.NoUI && app.LogFile == "" {
		// the readout owns the terminal
		logging.SetGlobalLogger(nil)
	}

	estimator, err := app.Estimator.newEstimator(0)
	if err != nil {
		return nil, err
	}

	monitor := live.NewMonitor(estimator, monitorQueueSize)
	if err := monitor.SetSpeed(flags.Speed); err != nil {
		return nil, fmt.Errorf("--speed %v: %w", flags.Speed, err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	s := &session{
		monitor: monitor,
		noUI:    flags.NoUI,
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		logger:  logging.WithFields(logging.Fields{"component": "session"}),
	}

	go func() {
		defer close(s.done)
		monitor.Run(ctx)
	}()

	if err := monitor.Load(ctx, sampleRate); err != nil {
		s.stop()
		return nil, err
	}
	return s, nil
}

// stop cancels the monitor and waits for it to exit
func (s *session) stop() {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
		if dropped := s.monitor.Dropped(); dropped > 0 {
			s.logger.Warn("Audio chunks dropped", logging.Fields{"dropped": dropped})
		}
	})
}

// run executes work while presenting updates, either in the readout or as
// plain lines. It returns when work finishes and, with the readout, when the
// user quits.
func (s *session) run(name string, duration time.Duration, work func(ctx context.Context) error) error {
	if s.noUI {
		return s.runPlain(name, work)
	}

	model := ui.NewModel(name, s.monitor, s.monitor.Updates())
	s.program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(s.ctx))

	workCtx, cancelWork := context.WithCancel(s.ctx)
	defer cancelWork()

	workErr := make(chan error, 1)
	go func() {
		s.program.Send(ui.SourceMsg{Name: name, Duration: duration})
		err := work(workCtx)
		s.program.Send(ui.DoneMsg{Error: err})
		workErr <- err
	}()

	_, uiErr := s.program.Run()
	cancelWork()
	err := <-workErr

	if uiErr != nil && !errors.Is(uiErr, tea.ErrProgramKilled) {
		return uiErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (s *session) runPlain(name string, work func(ctx context.Context) error) error {
	fmt.Println(cli.TitleStyle.Render("sonido-tempo") + "  " + name)

	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range s.monitor.Updates() {
			fmt.Println(formatUpdate(update))
		}
	}()

	err := work(s.ctx)
	bpm, ready := s.monitor.EffectiveBPM()

	s.stop()
	<-printed

	if ready {
		fmt.Printf("%s %s BPM\n", cli.KeyStyle.Render("Final:"), cli.ValueStyle.Render(cli.FormatBPM(bpm)))
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// trackPosition sends the scheduler's position to the readout until the
// returned function is called.
func (s *session) trackPosition(ctx context.Context, scheduler *live.Scheduler) func() {
	if s.program == nil {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(positionInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.program.Send(ui.PositionMsg{Position: scheduler.Position()})
			}
		}
	}()
	return func() {
		cancel()
		s.program.Send(ui.PositionMsg{Position: scheduler.Position()})
	}
}

func formatUpdate(update live.Update) string {
	return fmt.Sprintf("%s BPM  (estimated %s, %.2fx, %s)",
		cli.FormatBPM(update.EffectiveBPM),
		cli.FormatBPM(update.BPM),
		update.Speed,
		update.State,
	)
}
