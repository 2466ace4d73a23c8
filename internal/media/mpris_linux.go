//go:build linux

package media

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	mprisInterface       = "org.mpris.MediaPlayer2"
	mprisPlayerInterface = "org.mpris.MediaPlayer2.Player"
	mprisBusName         = "org.mpris.MediaPlayer2.audion"
	mprisObjectPath      = "/org/mpris/MediaPlayer2"
	mprisIdentity        = "audion"
)

var supportedMimeTypes = []string{"audio/wav", "audio/mpeg", "audio/flac", "audio/x-m4a"}

// MPRISSession implements MPRIS media session for Linux
type MPRISSession struct {
	mu       sync.Mutex
	conn     *dbus.Conn
	handler  CommandHandler
	metadata Metadata
	state    PlaybackState
	position time.Duration
}

// NewSession creates a new MPRIS media session
func NewSession() (Session, error) {
	conn, err := dbus.SessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	reply, err := conn.RequestName(mprisBusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("bus name already taken")
	}

	session := &MPRISSession{
		conn:  conn,
		state: StateStopped,
	}

	if err := session.exportInterfaces(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export interfaces: %w", err)
	}

	return session, nil
}

func (s *MPRISSession) exportInterfaces() error {
	path := dbus.ObjectPath(mprisObjectPath)
	for _, iface := range []string{mprisInterface, mprisPlayerInterface, "org.freedesktop.DBus.Properties"} {
		if err := s.conn.Export(s, path, iface); err != nil {
			return err
		}
	}
	return nil
}

// UpdateMetadata updates the bound file's metadata
func (s *MPRISSession) UpdateMetadata(metadata Metadata) error {
	s.mu.Lock()
	s.metadata = metadata
	props := map[string]dbus.Variant{
		"Metadata": dbus.MakeVariant(s.metadataMapLocked()),
	}
	s.mu.Unlock()

	return s.emitPropertiesChanged(mprisPlayerInterface, props)
}

// UpdatePlaybackState updates the playback state
func (s *MPRISSession) UpdatePlaybackState(state PlaybackState, position time.Duration) error {
	s.mu.Lock()
	oldState := s.state
	s.state = state
	s.position = position
	s.mu.Unlock()

	// Clients extrapolate position from Rate; tell them where playback restarted
	if oldState != state && state == StatePlaying {
		if err := s.conn.Emit(dbus.ObjectPath(mprisObjectPath), mprisPlayerInterface+".Seeked", position.Microseconds()); err != nil {
			log.Printf("[MEDIA] Failed to emit Seeked: %v", err)
		}
	}

	props := map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(state.String()),
	}
	return s.emitPropertiesChanged(mprisPlayerInterface, props)
}

// SetCommandHandler sets the handler for media commands
func (s *MPRISSession) SetCommandHandler(handler CommandHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

// Close releases resources
func (s *MPRISSession) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *MPRISSession) dispatch(cmd Command) *dbus.Error {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()

	if handler == nil {
		return nil
	}
	if err := handler.OnCommand(cmd); err != nil {
		log.Printf("[MEDIA] %s failed: %v", cmd, err)
	}
	return nil
}

// org.mpris.MediaPlayer2 methods

func (s *MPRISSession) Raise() *dbus.Error { return nil }

func (s *MPRISSession) Quit() *dbus.Error { return nil }

// org.mpris.MediaPlayer2.Player methods

func (s *MPRISSession) Play() *dbus.Error      { return s.dispatch(CmdPlay) }
func (s *MPRISSession) Pause() *dbus.Error     { return s.dispatch(CmdPause) }
func (s *MPRISSession) PlayPause() *dbus.Error { return s.dispatch(CmdPlayPause) }
func (s *MPRISSession) Stop() *dbus.Error      { return s.dispatch(CmdStop) }

// Next and Previous are unsupported: a page binds a single file
func (s *MPRISSession) Next() *dbus.Error     { return nil }
func (s *MPRISSession) Previous() *dbus.Error { return nil }

// org.freedesktop.DBus.Properties methods

func (s *MPRISSession) Get(iface, prop string) (dbus.Variant, *dbus.Error) {
	var all map[string]dbus.Variant
	switch iface {
	case mprisInterface:
		all = s.mediaPlayer2Properties()
	case mprisPlayerInterface:
		all = s.playerProperties()
	default:
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
	}

	v, ok := all[prop]
	if !ok {
		return dbus.Variant{}, dbus.MakeFailedError(fmt.Errorf("unknown property: %s", prop))
	}
	return v, nil
}

func (s *MPRISSession) GetAll(iface string) (map[string]dbus.Variant, *dbus.Error) {
	switch iface {
	case mprisInterface:
		return s.mediaPlayer2Properties(), nil
	case mprisPlayerInterface:
		return s.playerProperties(), nil
	}
	return nil, dbus.MakeFailedError(fmt.Errorf("unknown interface: %s", iface))
}

// Set is a no-op: no writable properties are exposed
func (s *MPRISSession) Set(iface, prop string, value dbus.Variant) *dbus.Error {
	return nil
}

func (s *MPRISSession) mediaPlayer2Properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"CanQuit":             dbus.MakeVariant(false),
		"CanRaise":            dbus.MakeVariant(false),
		"HasTrackList":        dbus.MakeVariant(false),
		"Identity":            dbus.MakeVariant(mprisIdentity),
		"DesktopEntry":        dbus.MakeVariant(mprisIdentity),
		"SupportedUriSchemes": dbus.MakeVariant([]string{"file"}),
		"SupportedMimeTypes":  dbus.MakeVariant(supportedMimeTypes),
	}
}

func (s *MPRISSession) playerProperties() map[string]dbus.Variant {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]dbus.Variant{
		"PlaybackStatus": dbus.MakeVariant(s.state.String()),
		"Metadata":       dbus.MakeVariant(s.metadataMapLocked()),
		"Position":       dbus.MakeVariant(s.position.Microseconds()),
		"Rate":           dbus.MakeVariant(1.0),
		"MinimumRate":    dbus.MakeVariant(1.0),
		"MaximumRate":    dbus.MakeVariant(1.0),
		"CanGoNext":      dbus.MakeVariant(false),
		"CanGoPrevious":  dbus.MakeVariant(false),
		"CanPlay":        dbus.MakeVariant(s.metadata.URL != ""),
		"CanPause":       dbus.MakeVariant(true),
		"CanSeek":        dbus.MakeVariant(false),
		"CanControl":     dbus.MakeVariant(true),
		"Volume":         dbus.MakeVariant(1.0),
	}
}

func (s *MPRISSession) metadataMapLocked() map[string]dbus.Variant {
	m := make(map[string]dbus.Variant)
	m["mpris:trackid"] = dbus.MakeVariant(dbus.ObjectPath("/org/audion/file/current"))

	if s.metadata.Title != "" {
		m["xesam:title"] = dbus.MakeVariant(s.metadata.Title)
	}
	if s.metadata.Duration > 0 {
		m["mpris:length"] = dbus.MakeVariant(s.metadata.Duration.Microseconds())
	}
	if s.metadata.URL != "" {
		m["xesam:url"] = dbus.MakeVariant(s.metadata.URL)
	}
	return m
}

func (s *MPRISSession) emitPropertiesChanged(iface string, props map[string]dbus.Variant) error {
	return s.conn.Emit(
		dbus.ObjectPath(mprisObjectPath),
		"org.freedesktop.DBus.Properties.PropertiesChanged",
		iface,
		props,
		[]string{},
	)
}
