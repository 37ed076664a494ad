package mixstate

const (
	// NumChannels is the fixed size of the control set
	NumChannels = 5

	// MinValue and MaxValue bound every channel value
	MinValue = 0
	MaxValue = 1023
)

// DefaultLabels are the display names used when no settings override them
var DefaultLabels = [NumChannels]string{"App1", "App2", "App3", "App4", "Master"}

// Channel is one controllable value.
// PreMuteValue is only meaningful while Muted is set.
type Channel struct {
	ID           int    `json:"id"`
	Label        string `json:"label"`
	Value        int    `json:"value"`
	PreMuteValue int    `json:"preMuteValue"`
	Muted        bool   `json:"muted"`
}

// Percent returns the channel value scaled to 0..100
func (c Channel) Percent() float64 {
	return float64(c.Value) * 100 / MaxValue
}

// Clamp bounds v to the valid channel range
func Clamp(v int) int {
	if v < MinValue {
		return MinValue
	}
	if v > MaxValue {
		return MaxValue
	}
	return v
}

// ValidID reports whether id addresses a channel
func ValidID(id int) bool {
	return id >= 0 && id < NumChannels
}
