package media

import "testing"

func TestPlaybackStateString(t *testing.T) {
	tests := map[PlaybackState]string{
		StatePlaying: "Playing",
		StatePaused:  "Paused",
		StateStopped: "Stopped",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %s, want %s", state, got, want)
		}
	}
}

func TestCommandHandlerFunc(t *testing.T) {
	var got Command = -1
	h := CommandHandlerFunc(func(cmd Command) error {
		got = cmd
		return nil
	})

	if err := h.OnCommand(CmdPlayPause); err != nil {
		t.Fatal(err)
	}
	if got != CmdPlayPause {
		t.Errorf("Expected PlayPause, got %s", got)
	}
	if CmdStop.String() != "Stop" || Command(99).String() != "Unknown" {
		t.Error("Unexpected command names")
	}
}

func TestNoOpSession(t *testing.T) {
	var s Session = NewNoOpSession()
	if err := s.UpdatePlaybackState(StatePlaying, 0); err != nil {
		t.Error(err)
	}
	if err := s.UpdateMetadata(Metadata{Title: "kick.wav"}); err != nil {
		t.Error(err)
	}
	s.SetCommandHandler(nil)
	if err := s.Close(); err != nil {
		t.Error(err)
	}
}
