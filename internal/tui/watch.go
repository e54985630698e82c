package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/rigflow/rigflow/internal/bus"
	"github.com/rigflow/rigflow/internal/events"
)

// Forward subscribes to run telemetry and forwards each event to the
// program as a message. send is typically (*tea.Program).Send.
func Forward(b *bus.Bus, send func(tea.Msg)) bus.Subscription {
	return b.SubscribeAll(events.AllTypes, func(_ context.Context, e events.Event) error {
		if msg := messageFor(e); msg != nil {
			send(msg)
		}
		return nil
	})
}

// messageFor translates a bus event into its watch message, or nil for
// events the watcher does not render.
func messageFor(e events.Event) tea.Msg {
	switch ev := e.(type) {
	case events.PipelineStarted:
		return PipelineStartMsg{
			PipelineID: ev.PipelineID,
			Name:       ev.PipelineName,
			NodeCount:  ev.NodeCount,
		}
	case events.NodeExecuting:
		return NodeStartMsg{
			NodeID:          ev.NodeID,
			Label:           ev.Label,
			NodeType:        ev.NodeType,
			Iteration:       ev.Iteration,
			TotalIterations: ev.TotalIterations,
		}
	case events.NodeCompleted:
		return NodeDoneMsg{
			NodeID:        ev.NodeID,
			Label:         ev.Label,
			ExecutionTime: ev.ExecutionTime,
		}
	case events.PipelineCompleted:
		return PipelineDoneMsg{
			ExecutionTime: ev.ExecutionTime,
			NodesExecuted: ev.NodesExecuted,
		}
	case events.PipelineError:
		return PipelineFailedMsg{NodeID: ev.NodeID, Message: ev.ErrorMessage}
	case events.DeviceError:
		return DeviceAlertMsg{DeviceID: ev.DeviceID, Message: ev.ErrorMessage}
	}
	return nil
}
