// Package sim wires configuration, the world, the stats store and the REST
// API together and drives the step loop.
package sim

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tslnc04/agent-sim/internal/api/rest"
	"github.com/tslnc04/agent-sim/internal/config"
	"github.com/tslnc04/agent-sim/internal/geometry"
	"github.com/tslnc04/agent-sim/internal/report"
	"github.com/tslnc04/agent-sim/internal/storage/local"
	"github.com/tslnc04/agent-sim/internal/world"
)

const shutdownTimeout = 5 * time.Second

// clearScreen homes the cursor and clears the terminal before each frame.
const clearScreen = "\x1b[H\x1b[2J"

// Controller owns a world and everything attached to it. The world is only
// touched under mu, so the REST API can read it while the loop steps.
type Controller struct {
	cfg    *config.Config
	logger *zap.Logger
	seed   int64

	mu      sync.Mutex
	world   *world.World
	history []world.Stats
	grid    io.Writer

	store local.StatsStore
}

// NewController builds and populates the world described by cfg, seeds the
// index cases and opens the stats store if one is configured.
func NewController(cfg *config.Config, logger *zap.Logger) (*Controller, error) {
	seed := cfg.Sim.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	bounds := geometry.NewRect(geometry.Zero(), geometry.V(cfg.World.Width, cfg.World.Height))
	w, err := world.New(bounds, WorldOptions(cfg), rand.New(rand.NewSource(seed)), logger)
	if err != nil {
		return nil, fmt.Errorf("world init: %w", err)
	}
	w.Populate(world.Population{
		Agents:     cfg.World.Agents,
		Homes:      cfg.World.Homes,
		Workplaces: cfg.World.Workplaces,
		Schools:    cfg.World.Schools,
	})
	w.InfectIndexCases(cfg.Sim.IndexCases)

	c := &Controller{
		cfg:    cfg,
		logger: logger,
		seed:   seed,
		world:  w,
	}
	if cfg.Output.Grid {
		c.grid = os.Stdout
	}

	if cfg.Output.Store != "" {
		store, err := openStore(cfg.Output.Store, logger)
		if err != nil {
			return nil, err
		}
		c.store = store
	}

	if err := c.record(w.Stats()); err != nil {
		c.Close()
		return nil, err
	}

	logger.Info("Simulation ready",
		zap.Int64("seed", seed),
		zap.Stringer("bounds", bounds),
		zap.Duration("stepSize", cfg.Sim.StepSize),
	)
	return c, nil
}

// WorldOptions converts the index and sim settings.
func WorldOptions(cfg *config.Config) world.Options {
	return world.Options{
		LeafCapacity:      cfg.Index.LeafCapacity,
		MinLeafWidth:      cfg.Index.MinLeafWidth,
		StepSize:          cfg.Sim.StepSize,
		InfectionRadius:   cfg.Sim.InfectionRadius,
		ExactRadius:       cfg.Sim.ExactRadius,
		FullConsolidation: cfg.Sim.FullConsolidation,
	}
}

// openStore opens the pebble store, retrying while a previous run may still
// hold its lock, and clears records left by that run.
func openStore(path string, logger *zap.Logger) (*local.PebbleStore, error) {
	store := local.NewPebbleStore(path, logger)
	err := retry.Do(store.Init,
		retry.Attempts(3),
		retry.Delay(200*time.Millisecond),
		retry.MaxDelay(2*time.Second),
		retry.OnRetry(func(n uint, err error) {
			logger.Warn("Stats store open retry", zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("stats store init: %w", err)
	}
	if err := store.Truncate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("stats store truncate: %w", err)
	}
	return store, nil
}

// Seed returns the seed the world was generated from.
func (c *Controller) Seed() int64 {
	return c.seed
}

// Close releases the stats store.
func (c *Controller) Close() error {
	if c.store == nil {
		return nil
	}
	return c.store.Close()
}

func (c *Controller) record(s world.Stats) error {
	c.history = append(c.history, s)
	if c.store == nil {
		return nil
	}
	if err := c.store.Put(s); err != nil {
		return fmt.Errorf("record step %d: %w", s.Step, err)
	}
	return nil
}

// SetGridOutput makes every step print the text grid to w as a fresh
// terminal frame. A nil w turns the grid off.
func (c *Controller) SetGridOutput(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grid = w
}

// Step advances the world once and records the result. It reports whether
// the epidemic is over.
func (c *Controller) Step() (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.world.Step()
	if err := c.record(c.world.Stats()); err != nil {
		return false, err
	}
	if c.grid != nil {
		if _, err := io.WriteString(c.grid, clearScreen+c.world.String()); err != nil {
			return false, fmt.Errorf("write grid: %w", err)
		}
	}
	return c.world.Done(), nil
}

// Run steps the world up to steps times, stopping early when the epidemic
// ends or ctx is cancelled. While the grid is shown, steps are spaced by
// sim.interval so the frames can be followed.
func (c *Controller) Run(ctx context.Context, steps int) error {
	c.logger.Info("Starting run", zap.Int("steps", steps))

	c.mu.Lock()
	paced := c.grid != nil && c.cfg.Sim.Interval > 0
	c.mu.Unlock()

	for i := 0; i < steps; i++ {
		if i > 0 && paced {
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.Sim.Interval):
			}
		}
		if ctx.Err() != nil {
			c.logger.Info("Run interrupted", zap.Int("step", i))
			break
		}
		done, err := c.Step()
		if err != nil {
			return err
		}
		if done {
			c.logger.Info("Epidemic over", zap.Int("step", i+1))
			break
		}
	}

	c.logSummary()
	return nil
}

// Serve runs the step loop every interval and serves the REST API on addr
// until SIGINT/SIGTERM, ctx cancellation, or the end of the epidemic.
func (c *Controller) Serve(ctx context.Context, addr string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := rest.New(c, c.store, c.logger)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		return srv.Start(addr)
	})

	eg.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()
		return srv.Shutdown(shutdownCtx)
	})

	eg.Go(func() error {
		defer cancel()
		return c.loop(ctx, interval)
	})

	err := eg.Wait()
	c.logSummary()
	return err
}

func (c *Controller) loop(ctx context.Context, interval time.Duration) error {
	c.mu.Lock()
	done := c.world.Done()
	c.mu.Unlock()
	if done {
		c.logger.Info("Epidemic over before the first step")
		return nil
	}

	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Shutdown signal received")
			return nil
		case <-ticker.C:
			done, err := c.Step()
			if err != nil {
				return err
			}
			if done {
				c.logger.Info("Epidemic over", zap.Int("step", c.Stats().Step))
				return nil
			}
		}
	}
}

func (c *Controller) logSummary() {
	s := c.Stats()
	c.logger.Info("Simulation finished",
		zap.Int("step", s.Step),
		zap.Duration("elapsed", s.Elapsed),
		zap.Int("infected", s.Infected),
		zap.Int("recovered", s.Recovered),
		zap.Int("dead", s.Dead),
		zap.Int("susceptible", s.Susceptible),
	)
}

// Stats implements rest.WorldView.
func (c *Controller) Stats() world.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world.Stats()
}

// AgentsIn implements rest.WorldView.
func (c *Controller) AgentsIn(r geometry.Rect) []world.AgentInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world.AgentsIn(r)
}

// RenderSVG implements rest.WorldView.
func (c *Controller) RenderSVG(w io.Writer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.world.RenderSVG(w)
}

// WriteContacts implements rest.WorldView.
func (c *Controller) WriteContacts(w io.Writer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.world.Contacts().WriteDOT(w)
}

// History returns the statistics of every step so far, read back from the
// store when there is one.
func (c *Controller) History() ([]world.Stats, error) {
	if c.store != nil {
		return c.store.Range(0, math.MaxInt32)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]world.Stats(nil), c.history...), nil
}

// WriteOutputs writes every output file enabled in the config.
func (c *Controller) WriteOutputs() error {
	out := c.cfg.Output
	if out.Chart != "" {
		history, err := c.History()
		if err != nil {
			return fmt.Errorf("load history: %w", err)
		}
		err = writeFile(out.Chart, func(w io.Writer) error {
			return report.RenderCurves(w, history, report.FormatFor(out.Chart))
		})
		switch {
		case errors.Is(err, report.ErrTooFewPoints):
			c.logger.Warn("Chart skipped", zap.Error(err))
		case err != nil:
			return err
		default:
			c.logger.Info("Chart written", zap.String("path", out.Chart))
		}
	}
	if out.SVG != "" {
		if err := c.WriteSVG(out.SVG); err != nil {
			return err
		}
	}
	if out.Contacts != "" {
		if err := writeFile(out.Contacts, c.WriteContacts); err != nil {
			return err
		}
		c.logger.Info("Contact graph written", zap.String("path", out.Contacts))
	}
	return nil
}

// WriteSVG writes the quadtree diagnostic to path.
func (c *Controller) WriteSVG(path string) error {
	err := writeFile(path, func(w io.Writer) error {
		c.RenderSVG(w)
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("SVG written", zap.String("path", path))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
