package services

import (
	"context"

	"github.com/google/uuid"

	redisclient "github.com/devBarbar/smart-study-notes-sub002/internal/clients/redis"
	"github.com/devBarbar/smart-study-notes-sub002/internal/sse"
	"github.com/devBarbar/smart-study-notes-sub002/internal/types"
)

// JobNotifier pushes job lifecycle events to the owner's SSE channel.
// Notification is best-effort; job state in the database is the source
// of truth.
type JobNotifier interface {
	JobCreated(userID uuid.UUID, job *types.Job)
	JobProgress(userID uuid.UUID, job *types.Job, stage string, progress int)
	JobFailed(userID uuid.UUID, job *types.Job, stage string, errorMessage string)
	JobDone(userID uuid.UUID, job *types.Job)
	ChatDelta(userID uuid.UUID, jobID uuid.UUID, delta string)
	ChatDone(userID uuid.UUID, jobID uuid.UUID, fullText string)
}

type jobNotifier struct {
	hub *sse.Hub
	bus redisclient.SSEBus
}

// NewJobNotifier wires events into the local hub and, when a bus is
// configured, mirrors them across instances. bus may be nil.
func NewJobNotifier(hub *sse.Hub, bus redisclient.SSEBus) JobNotifier {
	return &jobNotifier{hub: hub, bus: bus}
}

func (n *jobNotifier) send(msg sse.Message) {
	n.hub.Broadcast(msg)
	if n.bus != nil {
		_ = n.bus.Publish(context.Background(), msg)
	}
}

func (n *jobNotifier) JobCreated(userID uuid.UUID, job *types.Job) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventJobCreated,
		Data:    map[string]any{"job": job},
	})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.Job, stage string, progress int) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventJobProgress,
		Data: map[string]any{
			"job_id":   job.ID,
			"job_type": job.Type,
			"stage":    stage,
			"progress": progress,
		},
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.Job, stage string, errorMessage string) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventJobFailed,
		Data: map[string]any{
			"job_id":   job.ID,
			"job_type": job.Type,
			"stage":    stage,
			"error":    errorMessage,
		},
	})
}

func (n *jobNotifier) JobDone(userID uuid.UUID, job *types.Job) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventJobDone,
		Data: map[string]any{
			"job_id":   job.ID,
			"job_type": job.Type,
			"job":      job,
		},
	})
}

func (n *jobNotifier) ChatDelta(userID uuid.UUID, jobID uuid.UUID, delta string) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventChatDelta,
		Data: map[string]any{
			"job_id": jobID,
			"delta":  delta,
		},
	})
}

func (n *jobNotifier) ChatDone(userID uuid.UUID, jobID uuid.UUID, fullText string) {
	n.send(sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventChatDone,
		Data: map[string]any{
			"job_id": jobID,
			"text":   fullText,
		},
	})
}
