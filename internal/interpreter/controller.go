// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     interpreter
// Description: Controller owning the current pipeline instance
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package interpreter

import (
	"sync"

	"github.com/msto63/dolmetscher/pkg/core/logging"
)

// Controller is the caller-side control surface used by the CLI, TUI,
// tray and hotkey. Each Start builds a fresh Pipeline so a stale
// instance can never be signalled by a later start/stop.
type Controller struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	current *Pipeline
	input   DeviceHandle
	output  DeviceHandle
	sinks   []Sink
	states  []StateChangeListener

	wg     sync.WaitGroup
	logger *logging.Logger
}

// NewController creates a controller publishing events to sinks
func NewController(cfg Config, deps Deps, sinks ...Sink) *Controller {
	return &Controller{
		cfg:    cfg,
		deps:   deps,
		sinks:  sinks,
		logger: logging.New("controller"),
	}
}

// AddSink registers an event sink for future instances
func (c *Controller) AddSink(s Sink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// OnStateChange registers a listener attached to every future instance
func (c *Controller) OnStateChange(listener StateChangeListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states = append(c.states, listener)
}

// SetDevices selects the devices used by the next Start
func (c *Controller) SetDevices(input, output DeviceHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.input, c.output = input, output
}

// Devices returns the selected devices
func (c *Controller) Devices() (input, output DeviceHandle) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.input, c.output
}

// Current returns the most recent instance, or nil
func (c *Controller) Current() *Pipeline {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// State returns the state of the current instance, StateIdle if none
func (c *Controller) State() State {
	if p := c.Current(); p != nil {
		return p.State()
	}
	return StateIdle
}

// Start creates and starts a fresh instance
func (c *Controller) Start() (*Pipeline, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil && c.current.State().IsActive() {
		return nil, ErrAlreadyRunning
	}

	p := New(c.cfg, c.deps)
	for _, listener := range c.states {
		p.OnStateChange(listener)
	}
	sinks := append([]Sink(nil), c.sinks...)

	if err := p.Start(c.input, c.output); err != nil {
		return nil, err
	}
	c.wg.Add(1)
	go c.forward(p, sinks)

	c.current = p
	c.logger.Debug("Instance started", "instance", p.ID())
	return p, nil
}

// Stop stops the current instance
func (c *Controller) Stop() error {
	p := c.Current()
	if p == nil {
		return nil
	}
	return p.Stop()
}

// Warn publishes a non-fatal warning on the current instance. Without an
// active instance the warning is only logged.
func (c *Controller) Warn(err error) {
	if p := c.Current(); p != nil && p.Warn(err) {
		return
	}
	c.logger.Warn("Warning outside a session", "error", err)
}

// Toggle starts when nothing is running and stops otherwise
func (c *Controller) Toggle() error {
	if c.State().IsActive() {
		return c.Stop()
	}
	_, err := c.Start()
	return err
}

// Close stops the current instance and waits until its events are delivered
func (c *Controller) Close() error {
	err := c.Stop()
	c.wg.Wait()
	return err
}

func (c *Controller) forward(p *Pipeline, sinks []Sink) {
	defer c.wg.Done()
	for e := range p.Events() {
		for _, s := range sinks {
			s.Publish(e)
		}
	}
}
