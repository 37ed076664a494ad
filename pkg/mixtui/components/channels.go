package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/evertras/bubble-table/table"
	"github.com/txn2/pimixer/pkg/mixstate"
	"github.com/txn2/pimixer/pkg/mixtui/styles"
)

const (
	colKeyID      = "id"
	colKeyLabel   = "label"
	colKeyValue   = "value"
	colKeyPercent = "percent"
	colKeyPreMute = "premute"
	colKeyState   = "state"
)

// ChannelsModel shows the channel set as a table
type ChannelsModel struct {
	table table.Model
	width int
}

// NewChannelsModel creates the channel table
func NewChannelsModel() ChannelsModel {
	columns := []table.Column{
		table.NewColumn(colKeyID, "#", 3),
		table.NewFlexColumn(colKeyLabel, "Channel", 2),
		table.NewColumn(colKeyValue, "Value", 7),
		table.NewColumn(colKeyPercent, "Level", 7),
		table.NewColumn(colKeyPreMute, "Restore", 9),
		table.NewColumn(colKeyState, "State", 8),
	}

	m := ChannelsModel{}
	m.table = table.New(columns).
		WithBaseStyle(lipgloss.NewStyle().Padding(0, 1)).
		BorderRounded().
		HeaderStyle(styles.TableHeaderStyle).
		HighlightStyle(styles.TableSelectedStyle).
		Focused(true).
		WithPageSize(mixstate.NumChannels).
		WithFooterVisibility(false)

	return m
}

// SetChannels rebuilds the rows
func (m *ChannelsModel) SetChannels(channels []mixstate.Channel) {
	rows := make([]table.Row, 0, len(channels))
	for _, ch := range channels {
		state := table.NewStyledCell("live", styles.StatusUpStyle)
		restore := "-"
		if ch.Muted {
			state = table.NewStyledCell("muted", styles.TableMutedStyle)
			restore = fmt.Sprintf("%d", ch.PreMuteValue)
		}
		rows = append(rows, table.NewRow(table.RowData{
			colKeyID:      ch.ID,
			colKeyLabel:   ch.Label,
			colKeyValue:   ch.Value,
			colKeyPercent: fmt.Sprintf("%.0f%%", ch.Percent()),
			colKeyPreMute: restore,
			colKeyState:   state,
		}))
	}
	m.table = m.table.WithRows(rows)
	if m.width > 0 {
		m.table = m.table.WithTargetWidth(m.width - 2)
	}
}

// Select highlights the row for channel id
func (m *ChannelsModel) Select(id int) {
	m.table = m.table.WithHighlightedRow(id)
}

// Selected returns the highlighted row index
func (m *ChannelsModel) Selected() int {
	return m.table.GetHighlightedRowIndex()
}

// SetWidth updates the table width
func (m *ChannelsModel) SetWidth(width int) {
	m.width = width
	m.table = m.table.WithTargetWidth(width - 2)
}

// View renders the table
func (m ChannelsModel) View() string {
	return m.table.View()
}
