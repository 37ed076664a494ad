// Package mixmcp provides an MCP (Model Context Protocol) server for pimixer.
// It runs as a separate process on stdio and drives a running pimixer
// through its REST API.
package mixmcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/pkg/errors"
	"github.com/txn2/pimixer/pkg/mixapi/types"
	"github.com/txn2/pimixer/pkg/mixstate"
)

// Mixer is the remote control surface the tools call
type Mixer interface {
	Channels(ctx context.Context) (types.ChannelListResponse, error)
	SetChannel(ctx context.Context, id, value int) (types.ChannelResponse, error)
	Mute(ctx context.Context, id int) (types.ChannelResponse, error)
	Unmute(ctx context.Context, id int) (types.ChannelResponse, error)
	ToggleMute(ctx context.Context, id int) (types.ChannelResponse, error)
	Touch(ctx context.Context) (types.TouchResponse, error)
	DeviceLines(ctx context.Context, count int) ([]string, error)
}

var _ Mixer = (*HTTPClient)(nil)

// Server manages the MCP server lifecycle
type Server struct {
	mcpServer *mcp.Server
	version   string
	apiURL    string
	mixer     Mixer

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// New creates the MCP server. apiURL is only used in error hints.
func New(version, apiURL string, mixer Mixer) *Server {
	s := &Server{
		version: version,
		apiURL:  apiURL,
		mixer:   mixer,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	s.mcpServer = mcp.NewServer(&mcp.Implementation{
		Name:    "pimixer",
		Version: version,
	}, nil)

	s.registerTools()
	s.registerResources()
	return s
}

// Run serves MCP on stdio until ctx is done or Stop is called
func (s *Server) Run(ctx context.Context) error {
	return s.RunTransport(ctx, &mcp.StdioTransport{})
}

// RunTransport serves MCP on t
func (s *Server) RunTransport(ctx context.Context, t mcp.Transport) error {
	defer close(s.doneCh)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-s.stopCh:
			cancel()
		case <-runCtx.Done():
		}
	}()

	return s.mcpServer.Run(runCtx, t)
}

// Stop signals the server to stop
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Done returns a channel that closes when the server stops
func (s *Server) Done() <-chan struct{} {
	return s.doneCh
}

// Tool input types

type SetChannelInput struct {
	Channel int `json:"channel" jsonschema:"Channel id, 0-3 for the app channels and 4 for master"`
	Value   int `json:"value" jsonschema:"Target value 0-1023; out-of-range values are clamped"`
}

type ChannelInput struct {
	Channel int `json:"channel" jsonschema:"Channel id, 0-3 for the app channels and 4 for master"`
}

type MuteInput struct {
	Channel int    `json:"channel" jsonschema:"Channel id, 0-3 for the app channels and 4 for master"`
	Action  string `json:"action,omitempty" jsonschema:"toggle (default), mute or unmute"`
}

type GetDeviceLinesInput struct {
	Count int `json:"count,omitempty" jsonschema:"Number of lines to return (default: 50, max: 1000)"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_channels",
		Description: "List the five mixer channels with their values (0-1023), mute state, the current serial frame, backlight state and whether the serial link is up.",
	}, s.handleListChannels)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "set_channel",
		Description: "Set one channel to a value between 0 and 1023. Setting a muted channel unmutes it. The change is sent to the device on the next frame and saved to the config file.",
	}, s.handleSetChannel)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "toggle_mute",
		Description: "Mute, unmute or toggle one channel. Muting remembers the value and drives the channel to 0; unmuting restores the remembered value.",
	}, s.handleToggleMute)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "touch",
		Description: "Simulate a touch on the control surface. Boosts the display backlight to full for the configured duration.",
	}, s.handleTouch)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_device_lines",
		Description: "Get the most recent text lines received from the serial device, oldest first.",
	}, s.handleGetDeviceLines)
}

func (s *Server) classify(err error, ctx map[string]interface{}) *MCPError {
	if ctx == nil {
		ctx = map[string]interface{}{}
	}
	ctx["api_url"] = s.apiURL
	return ClassifyError(err, ctx)
}

func (s *Server) handleListChannels(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	list, err := s.mixer.Channels(ctx)
	if err != nil {
		return nil, nil, s.classify(err, nil)
	}

	parts := make([]string, len(list.Channels))
	for i, ch := range list.Channels {
		state := fmt.Sprintf("%d", ch.Value)
		if ch.Muted {
			state = fmt.Sprintf("muted (restores %d)", ch.PreMuteValue)
		}
		parts[i] = fmt.Sprintf("%d %s: %s", ch.ID, ch.Label, state)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Frame %s, serial %s, backlight %s. %s",
				list.Frame, list.Bridge, list.Brightness, strings.Join(parts, "; "))},
		},
	}, list, nil
}

func (s *Server) handleSetChannel(ctx context.Context, req *mcp.CallToolRequest, input SetChannelInput) (*mcp.CallToolResult, any, error) {
	if !mixstate.ValidID(input.Channel) {
		return nil, nil, NewChannelNotFoundError(input.Channel)
	}

	ch, err := s.mixer.SetChannel(ctx, input.Channel, input.Value)
	if err != nil {
		return nil, nil, s.classify(err, map[string]interface{}{"channel": input.Channel})
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Channel %d (%s) set to %d", ch.ID, ch.Label, ch.Value)},
		},
	}, ch, nil
}

func (s *Server) handleToggleMute(ctx context.Context, req *mcp.CallToolRequest, input MuteInput) (*mcp.CallToolResult, any, error) {
	if !mixstate.ValidID(input.Channel) {
		return nil, nil, NewChannelNotFoundError(input.Channel)
	}

	var call func(context.Context, int) (types.ChannelResponse, error)
	switch strings.ToLower(input.Action) {
	case "", "toggle":
		call = s.mixer.ToggleMute
	case "mute":
		call = s.mixer.Mute
	case "unmute":
		call = s.mixer.Unmute
	default:
		return nil, nil, NewInvalidInputError("action", input.Action, "one of toggle, mute or unmute")
	}

	ch, err := call(ctx, input.Channel)
	if err != nil {
		return nil, nil, s.classify(err, map[string]interface{}{"channel": input.Channel})
	}

	state := "unmuted"
	if ch.Muted {
		state = "muted"
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("Channel %d (%s) %s, value %d", ch.ID, ch.Label, state, ch.Value)},
		},
	}, ch, nil
}

func (s *Server) handleTouch(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	resp, err := s.mixer.Touch(ctx)
	if err != nil {
		return nil, nil, s.classify(err, nil)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: "Touch accepted, backlight " + resp.Brightness},
		},
	}, resp, nil
}

func (s *Server) handleGetDeviceLines(ctx context.Context, req *mcp.CallToolRequest, input GetDeviceLinesInput) (*mcp.CallToolResult, any, error) {
	count := input.Count
	if count <= 0 {
		count = 50
	}
	if count > 1000 {
		count = 1000
	}

	lines, err := s.mixer.DeviceLines(ctx, count)
	if err != nil {
		return nil, nil, s.classify(err, nil)
	}

	text := fmt.Sprintf("%d lines from the device", len(lines))
	if len(lines) > 0 {
		text += ":\n" + strings.Join(lines, "\n")
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, map[string]interface{}{"lines": lines, "count": len(lines)}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         "pimixer://channels",
		Name:        "Mixer Channels",
		Description: "Current channel values, mute state and serial frame",
		MIMEType:    "application/json",
	}, s.handleChannelsResource)
}

func (s *Server) handleChannelsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	list, err := s.mixer.Channels(ctx)
	if err != nil {
		return nil, s.classify(err, nil)
	}

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal channels")
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
