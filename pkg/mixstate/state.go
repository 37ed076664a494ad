package mixstate

import (
	"fmt"
)

// State is the in-memory model of the five control values.
// It is not safe for concurrent use; the control loop owns it and hands out
// Snapshot copies to everyone else.
type State struct {
	channels [NumChannels]Channel
}

// New creates a State initialized from snap with the default labels
func New(snap Snapshot) *State {
	s := &State{}
	for i := range s.channels {
		s.channels[i] = Channel{
			ID:    i,
			Label: DefaultLabels[i],
			Value: Clamp(snap[i]),
		}
	}
	return s
}

// SetLabels overrides display labels; empty entries keep the current label
func (s *State) SetLabels(labels []string) {
	for i, l := range labels {
		if !ValidID(i) {
			break
		}
		if l != "" {
			s.channels[i].Label = l
		}
	}
}

// Channel returns a copy of channel id
func (s *State) Channel(id int) (Channel, error) {
	if !ValidID(id) {
		return Channel{}, fmt.Errorf("channel %d out of range", id)
	}
	return s.channels[id], nil
}

// Channels returns a copy of all channels in order
func (s *State) Channels() []Channel {
	out := make([]Channel, NumChannels)
	copy(out, s.channels[:])
	return out
}

// Snapshot returns the current value list
func (s *State) Snapshot() Snapshot {
	var snap Snapshot
	for i, c := range s.channels {
		snap[i] = c.Value
	}
	return snap
}

// SetValue sets channel id to v (clamped). Moving a muted channel unmutes it.
// It returns true when the stored value or mute flag changed.
func (s *State) SetValue(id, v int) (bool, error) {
	if !ValidID(id) {
		return false, fmt.Errorf("channel %d out of range", id)
	}
	c := &s.channels[id]
	v = Clamp(v)
	changed := c.Value != v || c.Muted
	c.Value = v
	c.Muted = false
	return changed, nil
}

// Adjust moves channel id by delta, clamped to the valid range
func (s *State) Adjust(id, delta int) (bool, error) {
	if !ValidID(id) {
		return false, fmt.Errorf("channel %d out of range", id)
	}
	return s.SetValue(id, s.channels[id].Value+delta)
}

// Mute remembers the current value and drives the channel to zero.
// Muting an already muted channel is a no-op.
func (s *State) Mute(id int) (bool, error) {
	if !ValidID(id) {
		return false, fmt.Errorf("channel %d out of range", id)
	}
	c := &s.channels[id]
	if c.Muted {
		return false, nil
	}
	c.PreMuteValue = c.Value
	c.Value = MinValue
	c.Muted = true
	return true, nil
}

// Unmute restores the value remembered by Mute.
// Unmuting a channel that is not muted is a no-op.
func (s *State) Unmute(id int) (bool, error) {
	if !ValidID(id) {
		return false, fmt.Errorf("channel %d out of range", id)
	}
	c := &s.channels[id]
	if !c.Muted {
		return false, nil
	}
	c.Value = Clamp(c.PreMuteValue)
	c.PreMuteValue = 0
	c.Muted = false
	return true, nil
}

// ToggleMute mutes an unmuted channel and unmutes a muted one.
// It returns the new mute flag.
func (s *State) ToggleMute(id int) (bool, error) {
	if !ValidID(id) {
		return false, fmt.Errorf("channel %d out of range", id)
	}
	if s.channels[id].Muted {
		_, err := s.Unmute(id)
		return false, err
	}
	_, err := s.Mute(id)
	return true, err
}
