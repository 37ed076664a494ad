package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/muesli/termenv"
	"github.com/txn2/pimixer/pkg/mixstate"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

const (
	barLabelWidth = 8
	barValueWidth = 6
	barMutedWidth = 7
	minBarWidth   = 10
)

// BarsModel renders one horizontal bar per channel, one line each
type BarsModel struct {
	bars     []progress.Model
	channels []mixstate.Channel
	selected int
	width    int
}

// NewBarsModel creates the bars. A non-nil profile forces the color
// profile used by the bars (termenv.Ascii renders without escapes).
func NewBarsModel(profile *termenv.Profile) BarsModel {
	m := BarsModel{
		bars:     make([]progress.Model, mixstate.NumChannels),
		channels: make([]mixstate.Channel, mixstate.NumChannels),
	}
	for i := range m.bars {
		opts := []progress.Option{
			progress.WithSolidFill(styles.BarColor()),
			progress.WithoutPercentage(),
			progress.WithWidth(minBarWidth),
		}
		if profile != nil {
			opts = append(opts, progress.WithColorProfile(*profile))
		}
		m.bars[i] = progress.New(opts...)
		m.channels[i] = mixstate.Channel{ID: i, Label: mixstate.DefaultLabels[i]}
	}
	return m
}

// SetChannels replaces the rendered channel values
func (m *BarsModel) SetChannels(channels []mixstate.Channel) {
	for i, ch := range channels {
		if i >= len(m.channels) {
			break
		}
		m.channels[i] = ch
		if ch.Muted {
			m.bars[i].FullColor = styles.MutedBarColor()
		} else {
			m.bars[i].FullColor = styles.BarColor()
		}
	}
}

// Select highlights channel id
func (m *BarsModel) Select(id int) {
	if mixstate.ValidID(id) {
		m.selected = id
	}
}

// Selected returns the highlighted channel
func (m *BarsModel) Selected() int {
	return m.selected
}

// SetWidth sizes every bar to fit the line
func (m *BarsModel) SetWidth(width int) {
	m.width = width
	w := width - barLabelWidth - barValueWidth - barMutedWidth - 4
	if w < minBarWidth {
		w = minBarWidth
	}
	for i := range m.bars {
		m.bars[i].Width = w
	}
}

// Height is the number of lines View produces
func (m *BarsModel) Height() int {
	return len(m.bars)
}

// View renders the bars
func (m BarsModel) View() string {
	lines := make([]string, len(m.bars))
	for i, ch := range m.channels {
		labelStyle := styles.BarLabelStyle
		marker := "  "
		if i == m.selected {
			labelStyle = styles.BarSelectedLabelStyle
			marker = "▸ "
		}

		muted := strings.Repeat(" ", barMutedWidth)
		if ch.Muted {
			muted = styles.BarMutedStyle.Render(fmt.Sprintf("%-*s", barMutedWidth, " muted"))
		}

		lines[i] = marker +
			labelStyle.Render(ch.Label) +
			m.bars[i].ViewAs(ch.Percent()/100) +
			styles.BarValueStyle.Render(fmt.Sprintf("%d", ch.Value)) +
			muted
	}
	return strings.Join(lines, "\n")
}
