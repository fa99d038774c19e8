// Package timers owns the process-wide attempt-timer state. A single
// goroutine is the only writer; everything else talks to it through
// request/response commands and a broadcast channel, mirroring the
// background/foreground split of the UI.
package timers

import (
	"context"
	"time"

	"github.com/vytor/cfpractice/internal/logger"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/repository"
)

// Commands published to subscribers.
const (
	CommandTimerTick = "timerTick"
	CommandSyncState = "syncState"
)

// Update is one broadcast message: a tick or a state change, with the
// full snapshot attached.
type Update struct {
	Command  string               `json:"command"`
	Snapshot models.TimerSnapshot `json:"payload"`
}

type startCmd struct {
	problemKey string
	reply      chan bool
}

type reconcileCmd struct {
	solved map[string]bool
	reply  chan []models.StoppedTimer
}

type snapshotCmd struct {
	reply chan models.TimerSnapshot
}

type subscribeCmd struct {
	ch chan Update
}

type unsubscribeCmd struct {
	ch chan Update
}

type reloadCmd struct {
	reply chan error
}

type Coordinator struct {
	repo repository.TimerRepository
	tick time.Duration
	now  func() time.Time
	cmds chan any
	log  *logger.Logger

	// Owned exclusively by the Run goroutine.
	active      map[string]time.Time
	solved      map[string]models.SolvedRecord
	subscribers map[chan Update]bool
}

func NewCoordinator(repo repository.TimerRepository, tick time.Duration) *Coordinator {
	return &Coordinator{
		repo:        repo,
		tick:        tick,
		now:         time.Now,
		cmds:        make(chan any, 16),
		log:         logger.Default().WithPrefix("timers"),
		active:      make(map[string]time.Time),
		solved:      make(map[string]models.SolvedRecord),
		subscribers: make(map[chan Update]bool),
	}
}

// WithClock overrides the clock. Test hook.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// Run loads persisted timer state and processes commands until the
// context is cancelled. Must be running before any other method is used.
func (c *Coordinator) Run(ctx context.Context) {
	if err := c.load(ctx); err != nil {
		c.log.Error("failed to load timer state: %v", err)
	}
	c.log.Info("timer coordinator started with %d active timers", len(c.active))

	ticker := time.NewTicker(c.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("timer coordinator stopped")
			return
		case <-ticker.C:
			if len(c.active) > 0 {
				c.broadcast(CommandTimerTick)
			}
		case cmd := <-c.cmds:
			c.handle(ctx, cmd)
		}
	}
}

func (c *Coordinator) handle(ctx context.Context, cmd any) {
	switch cmd := cmd.(type) {
	case startCmd:
		cmd.reply <- c.startTimer(ctx, cmd.problemKey)
	case reconcileCmd:
		cmd.reply <- c.reconcile(ctx, cmd.solved)
	case snapshotCmd:
		cmd.reply <- c.snapshot()
	case subscribeCmd:
		c.subscribers[cmd.ch] = true
	case unsubscribeCmd:
		delete(c.subscribers, cmd.ch)
		close(cmd.ch)
	case reloadCmd:
		cmd.reply <- c.load(ctx)
	}
}

// startTimer is Idle -> Running; starting an already running timer is a
// no-op.
func (c *Coordinator) startTimer(ctx context.Context, problemKey string) bool {
	if _, running := c.active[problemKey]; running {
		c.log.Debug("timer already running for %s, ignoring start", problemKey)
		return false
	}
	c.active[problemKey] = c.now()
	c.log.Info("timer started for %s", problemKey)
	c.persist(ctx)
	c.broadcast(CommandSyncState)
	return true
}

// reconcile stops every running timer whose key is in the solved set and
// returns the stop records with elapsed whole seconds. The caller is
// responsible for attaching those durations to history; the coordinator
// never writes history itself.
func (c *Coordinator) reconcile(ctx context.Context, solved map[string]bool) []models.StoppedTimer {
	var stopped []models.StoppedTimer
	now := c.now()
	for key, startedAt := range c.active {
		if !solved[key] {
			continue
		}
		solveTime := int64(now.Sub(startedAt) / time.Second)
		delete(c.active, key)
		c.solved[key] = models.SolvedRecord{SolveTime: solveTime, SolvedOn: now}
		stopped = append(stopped, models.StoppedTimer{ProblemKey: key, SolveTime: solveTime})
		c.log.Info("timer stopped for %s after %ds (solved)", key, solveTime)
	}
	if len(stopped) > 0 {
		c.persist(ctx)
		c.broadcast(CommandSyncState)
	}
	return stopped
}

func (c *Coordinator) snapshot() models.TimerSnapshot {
	snap := models.TimerSnapshot{
		ActiveTimers:   make(map[string]time.Time, len(c.active)),
		SolvedProblems: make(map[string]models.SolvedRecord, len(c.solved)),
	}
	for k, v := range c.active {
		snap.ActiveTimers[k] = v
	}
	for k, v := range c.solved {
		snap.SolvedProblems[k] = v
	}
	return snap
}

// broadcast pushes the current snapshot to all subscribers without ever
// blocking on a slow one.
func (c *Coordinator) broadcast(command string) {
	update := Update{Command: command, Snapshot: c.snapshot()}
	for ch := range c.subscribers {
		select {
		case ch <- update:
		default:
		}
	}
}

func (c *Coordinator) load(ctx context.Context) error {
	active, err := c.repo.LoadActive(ctx)
	if err != nil {
		return err
	}
	solved, err := c.repo.LoadSolved(ctx)
	if err != nil {
		return err
	}
	c.active = active
	c.solved = solved
	return nil
}

func (c *Coordinator) persist(ctx context.Context) {
	if err := c.repo.SaveActive(ctx, c.active); err != nil {
		c.log.Error("failed to persist active timers: %v", err)
	}
	if err := c.repo.SaveSolved(ctx, c.solved); err != nil {
		c.log.Error("failed to persist solved records: %v", err)
	}
}

// StartTimer asks the coordinator to start a timer for a problem.
// Returns false when one is already running.
func (c *Coordinator) StartTimer(ctx context.Context, problemKey string) (bool, error) {
	reply := make(chan bool, 1)
	select {
	case c.cmds <- startCmd{problemKey: problemKey, reply: reply}:
	case <-ctx.Done():
		return false, ctx.Err()
	}
	select {
	case started := <-reply:
		return started, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Reconcile reports the solved set to the coordinator and returns the
// timers it stopped as a result.
func (c *Coordinator) Reconcile(ctx context.Context, solved map[string]bool) ([]models.StoppedTimer, error) {
	reply := make(chan []models.StoppedTimer, 1)
	select {
	case c.cmds <- reconcileCmd{solved: solved, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case stopped := <-reply:
		return stopped, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Snapshot answers the requestSync command: the current timers and
// solved records.
func (c *Coordinator) Snapshot(ctx context.Context) (models.TimerSnapshot, error) {
	reply := make(chan models.TimerSnapshot, 1)
	select {
	case c.cmds <- snapshotCmd{reply: reply}:
	case <-ctx.Done():
		return models.TimerSnapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-ctx.Done():
		return models.TimerSnapshot{}, ctx.Err()
	}
}

// Subscribe registers a listener for tick and state broadcasts.
func (c *Coordinator) Subscribe() chan Update {
	ch := make(chan Update, 8)
	c.cmds <- subscribeCmd{ch: ch}
	return ch
}

// Unsubscribe removes a listener and closes its channel.
func (c *Coordinator) Unsubscribe(ch chan Update) {
	c.cmds <- unsubscribeCmd{ch: ch}
}

// Reload re-reads persisted timer state, used after a bulk import
// replaces the store underneath the coordinator.
func (c *Coordinator) Reload(ctx context.Context) error {
	reply := make(chan error, 1)
	select {
	case c.cmds <- reloadCmd{reply: reply}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
