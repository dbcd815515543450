package entity

import (
	"time"

	"github.com/google/uuid"
)

type RunState string

const (
	RunStateInit              RunState = "INIT"
	RunStateResolvingMetadata RunState = "RESOLVING_METADATA"
	RunStateIteratingFrames   RunState = "ITERATING_FRAMES"
	RunStateFinalizing        RunState = "FINALIZING"
	RunStateArchiving         RunState = "ARCHIVING"
	RunStateUploading         RunState = "UPLOADING"
	RunStateNotifying         RunState = "NOTIFYING"
	RunStateDone              RunState = "DONE"
	RunStateFailed            RunState = "FAILED"
)

// ArchiveRun tracks one invocation of the archiver.
type ArchiveRun struct {
	ID           uuid.UUID
	ProjectID    int64
	AnnotationID int64
	DatasetID    int64
	State        RunState
	FrameCount   int
	ArchiveName  string
	ArchivePath  string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	CompletedAt  *time.Time
}

func NewArchiveRun(info ArchiveInfo) *ArchiveRun {
	now := time.Now().UTC()
	return &ArchiveRun{
		ID:           uuid.New(),
		ProjectID:    info.ProjectID,
		AnnotationID: info.AnnotationID,
		DatasetID:    info.DatasetID,
		State:        RunStateInit,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transition moves the run to the next state. Terminal states are sticky.
func (r *ArchiveRun) Transition(state RunState) {
	if r.Terminal() {
		return
	}
	r.State = state
	r.UpdatedAt = time.Now().UTC()
}

func (r *ArchiveRun) MarkDone(archiveName, archivePath string) {
	now := time.Now().UTC()
	r.State = RunStateDone
	r.ArchiveName = archiveName
	r.ArchivePath = archivePath
	r.UpdatedAt = now
	r.CompletedAt = &now
}

func (r *ArchiveRun) MarkFailed(errMsg string) {
	r.State = RunStateFailed
	r.ErrorMessage = errMsg
	r.UpdatedAt = time.Now().UTC()
}

func (r *ArchiveRun) Terminal() bool {
	return r.State == RunStateDone || r.State == RunStateFailed
}

// ArchiveStatusMessage is published once a run reaches a terminal state.
type ArchiveStatusMessage struct {
	RunID        uuid.UUID `json:"run_id"`
	ProjectID    int64     `json:"project_id"`
	AnnotationID int64     `json:"annotation_id"`
	State        RunState  `json:"state"`
	FrameCount   int       `json:"frame_count,omitempty"`
	ArchiveName  string    `json:"archive_name,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func (r *ArchiveRun) StatusMessage() ArchiveStatusMessage {
	return ArchiveStatusMessage{
		RunID:        r.ID,
		ProjectID:    r.ProjectID,
		AnnotationID: r.AnnotationID,
		State:        r.State,
		FrameCount:   r.FrameCount,
		ArchiveName:  r.ArchiveName,
		ErrorMessage: r.ErrorMessage,
	}
}
