package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ziadkadry99/mapview/internal/animals"
	"github.com/ziadkadry99/mapview/internal/chat"
	"github.com/ziadkadry99/mapview/internal/session"
	"github.com/ziadkadry99/mapview/internal/viewport"
)

func (s *Server) handleGetViewport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatViewport(s.session.Snapshot().Viewport)), nil
}

func (s *Server) handleListMarkers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(formatMarkers(s.session.Snapshot())), nil
}

// handleLoadImage centers the map for the given container.
func (s *Server) handleLoadImage(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cw, err := request.RequireFloat("container_width")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: container_width"), nil
	}
	ch, err := request.RequireFloat("container_height")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: container_height"), nil
	}

	natural := viewport.Vec{
		X: request.GetFloat("natural_width", 0),
		Y: request.GetFloat("natural_height", 0),
	}
	if natural.IsZero() {
		if s.asset == nil {
			return mcp.NewToolResultError("natural_width and natural_height are required when no map image is configured"), nil
		}
		natural = s.asset.NaturalSize()
	}

	snap := s.session.LoadImage(natural, viewport.Vec{X: cw, Y: ch})
	return mcp.NewToolResultText(formatViewport(snap.Viewport)), nil
}

// handlePanMap applies one cumulative drag sample.
func (s *Server) handlePanMap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	x, err := request.RequireFloat("x")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: x"), nil
	}
	y, err := request.RequireFloat("y")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: y"), nil
	}

	delta, snap := s.session.Drag(viewport.Vec{X: x, Y: y})

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Delta: (%g, %g)\n", delta.X, delta.Y))
	sb.WriteString(fmt.Sprintf("Offset: (%g, %g)\n\n", snap.Viewport.Offset.X, snap.Viewport.Offset.Y))
	sb.WriteString(formatMarkers(snap))
	return mcp.NewToolResultText(sb.String()), nil
}

// handleGetAnimal returns the profile card for a marker.
func (s *Server) handleGetAnimal(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: id"), nil
	}

	p, err := s.animals.Get(id)
	if errors.Is(err, animals.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("No animal with id %q.", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load animal: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", p.Name, p.ID))
	sb.WriteString(fmt.Sprintf("Sex: %s\nAge: %d\nPersonality: %s\nDistance: %gm\n", p.Sex, p.Age, p.Personality, p.DistanceM))
	if m, err := s.session.Marker(id); err == nil {
		sb.WriteString(fmt.Sprintf("Position: (%g, %g)\n", m.Position.X, m.Position.Y))
	}
	if len(p.Statuses) > 0 {
		sb.WriteString("\n## Status\n")
		for _, st := range p.Statuses {
			sb.WriteString(fmt.Sprintf("- %s: %d/100 [%s]", st.Label, st.Value, st.Tone))
			if st.Caption != "" {
				sb.WriteString(" " + st.Caption)
			}
			sb.WriteString("\n")
		}
	}
	if p.Notes != "" {
		sb.WriteString("\n## Notes\n")
		sb.WriteString(p.Notes)
		sb.WriteString("\n")
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// handleAskGuide sends a question through the chat service.
func (s *Server) handleAskGuide(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}
	conversationID := request.GetString("conversation_id", "")

	reply, err := s.chat.Send(ctx, conversationID, question)
	var upstream *chat.UpstreamError
	switch {
	case errors.Is(err, chat.ErrEmptyInput):
		return mcp.NewToolResultError("question is empty"), nil
	case errors.Is(err, chat.ErrNotFound):
		return mcp.NewToolResultError(fmt.Sprintf("No conversation with id %q.", conversationID)), nil
	case errors.As(err, &upstream):
		return mcp.NewToolResultError(fmt.Sprintf("The guide is unavailable: %v", upstream.Err)), nil
	case err != nil:
		return mcp.NewToolResultError(fmt.Sprintf("chat failed: %v", err)), nil
	}

	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n(conversation_id: %s)", reply.Content, reply.ConversationID)), nil
}

func formatViewport(st viewport.State) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Phase: %s\n", st.Phase))
	sb.WriteString(fmt.Sprintf("Image: %gx%g\n", st.ImageSize.X, st.ImageSize.Y))
	sb.WriteString(fmt.Sprintf("Center: (%g, %g)\n", st.Center.X, st.Center.Y))
	sb.WriteString(fmt.Sprintf("Offset: (%g, %g)\n", st.Offset.X, st.Offset.Y))
	sb.WriteString(fmt.Sprintf("Last sample displacement: (%g, %g)\n", st.LastSampleDelta.X, st.LastSampleDelta.Y))
	return sb.String()
}

func formatMarkers(snap session.Snapshot) string {
	if len(snap.Markers) == 0 {
		return "No markers."
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d marker(s):\n", len(snap.Markers)))
	for _, m := range snap.Markers {
		sb.WriteString(fmt.Sprintf("- %s at (%g, %g)\n", m.ID, m.Position.X, m.Position.Y))
	}
	return sb.String()
}
