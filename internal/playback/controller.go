// Package playback binds one intake file at a time to an audio engine and tracks
// whether it is playing.
package playback

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/audion-app/audion/internal/media"
	"github.com/audion-app/audion/internal/platform"
)

// State is the controller state
type State string

const (
	StatePaused  State = "paused"
	StatePlaying State = "playing"
)

// ErrNothingBound is returned by Toggle when no file is bound
var ErrNothingBound = errors.New("no file bound")

// Engine plays a single local file
type Engine interface {
	Load(path string) error
	Play() error
	Pause() error
	Stop() error
	Position() time.Duration
	SetOnEnded(callback func())
}

// Binding describes the file currently bound to the controller
type Binding struct {
	Name     string
	MimeType string
	Handle   platform.Handle
}

// StateCallback is called after every state change
type StateCallback func(state State)

// Controller is the {Paused, Playing} state machine for one page.
// It exclusively owns the bound handle's playback.
type Controller struct {
	mu       sync.Mutex
	engine   Engine
	platform platform.Platform
	session  media.Session

	bound   *Binding
	state   State
	onState StateCallback
}

// NewController creates a controller. session may be nil.
func NewController(engine Engine, p platform.Platform, session media.Session) *Controller {
	if session == nil {
		session = media.NewNoOpSession()
	}

	c := &Controller{
		engine:   engine,
		platform: p,
		session:  session,
		state:    StatePaused,
	}
	engine.SetOnEnded(c.Ended)
	session.SetCommandHandler(c)
	return c
}

// SetOnStateChange sets a callback run after each state change
func (c *Controller) SetOnStateChange(callback StateCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onState = callback
}

// Bind makes b the bound file, tearing down the previous one and resetting to Paused
func (c *Controller) Bind(b Binding) error {
	path, err := c.platform.Resolve(b.Handle)
	if err != nil {
		return fmt.Errorf("failed to resolve handle for %s: %w", b.Name, err)
	}

	c.mu.Lock()
	if err := c.engine.Stop(); err != nil {
		log.Printf("[PLAYBACK] Failed to stop previous file: %v", err)
	}
	if err := c.engine.Load(path); err != nil {
		c.bound = nil
		c.mu.Unlock()
		c.setState(StatePaused)
		return fmt.Errorf("failed to load %s: %w", b.Name, err)
	}
	bound := b
	c.bound = &bound
	c.mu.Unlock()

	log.Printf("[PLAYBACK] Bound %s", b.Name)
	if err := c.session.UpdateMetadata(media.Metadata{Title: b.Name, MimeType: b.MimeType, URL: b.Handle.URL}); err != nil {
		log.Printf("[MEDIA] Failed to update metadata: %v", err)
	}
	c.setState(StatePaused)
	return nil
}

// Unbind stops playback and releases the bound file
func (c *Controller) Unbind() {
	c.mu.Lock()
	if c.bound == nil {
		c.mu.Unlock()
		return
	}
	if err := c.engine.Stop(); err != nil {
		log.Printf("[PLAYBACK] Failed to stop: %v", err)
	}
	if err := c.engine.Load(""); err != nil {
		log.Printf("[PLAYBACK] Failed to unload: %v", err)
	}
	c.bound = nil
	c.mu.Unlock()

	if err := c.session.UpdateMetadata(media.Metadata{}); err != nil {
		log.Printf("[MEDIA] Failed to clear metadata: %v", err)
	}
	c.setState(StatePaused)
}

// Bound returns the bound file, if any
func (c *Controller) Bound() (Binding, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bound == nil {
		return Binding{}, false
	}
	return *c.bound, true
}

// Toggle switches between Paused and Playing
func (c *Controller) Toggle() (State, error) {
	c.mu.Lock()
	if c.bound == nil {
		c.mu.Unlock()
		return c.State(), ErrNothingBound
	}

	next := StatePlaying
	var err error
	if c.state == StatePlaying {
		next = StatePaused
		err = c.engine.Pause()
	} else {
		err = c.engine.Play()
	}
	if err != nil {
		current := c.state
		c.mu.Unlock()
		return current, fmt.Errorf("failed to toggle playback: %w", err)
	}
	notify := c.transitionLocked(next)
	c.mu.Unlock()

	notify()
	return next, nil
}

// Play moves to Playing if not already there
func (c *Controller) Play() error {
	if c.State() == StatePlaying {
		return nil
	}
	_, err := c.Toggle()
	return err
}

// Pause moves to Paused if not already there
func (c *Controller) Pause() error {
	if c.State() == StatePaused {
		return nil
	}
	_, err := c.Toggle()
	return err
}

// Stop pauses and rewinds the bound file to its start
func (c *Controller) Stop() error {
	c.mu.Lock()
	err := c.engine.Stop()
	c.mu.Unlock()

	c.setState(StatePaused)
	return err
}

// Ended is the end-of-media signal; it returns the controller to Paused
func (c *Controller) Ended() {
	log.Printf("[PLAYBACK] Reached end of media")
	c.setState(StatePaused)
}

// State returns the current state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Position returns the engine's playback position
func (c *Controller) Position() time.Duration {
	return c.engine.Position()
}

// OnCommand handles OS media session commands
func (c *Controller) OnCommand(cmd media.Command) error {
	log.Printf("[PLAYBACK] Received OS media command: %s", cmd)
	switch cmd {
	case media.CmdPlay:
		return c.Play()
	case media.CmdPause:
		return c.Pause()
	case media.CmdPlayPause:
		_, err := c.Toggle()
		return err
	case media.CmdStop:
		return c.Stop()
	}
	return nil
}

// Close unbinds and releases the media session
func (c *Controller) Close() error {
	c.Unbind()
	return c.session.Close()
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	notify := c.transitionLocked(state)
	c.mu.Unlock()
	notify()
}

// transitionLocked records state while c.mu is held and returns the
// notification to run once it is released
func (c *Controller) transitionLocked(state State) func() {
	changed := c.state != state
	c.state = state
	callback := c.onState
	return func() { c.notify(state, changed, callback) }
}

func (c *Controller) notify(state State, changed bool, callback StateCallback) {
	mediaState := media.StatePaused
	if state == StatePlaying {
		mediaState = media.StatePlaying
	}
	if err := c.session.UpdatePlaybackState(mediaState, c.engine.Position()); err != nil {
		log.Printf("[MEDIA] Failed to update playback state: %v", err)
	}

	if changed && callback != nil {
		callback(state)
	}
}

var _ media.CommandHandler = (*Controller)(nil)
