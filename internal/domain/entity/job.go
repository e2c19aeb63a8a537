package entity

import (
	"time"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Timeline event names as stored under the job's "timeline" field.
const (
	TimelineCreated           = "created"
	TimelineProcessingStarted = "processingStarted"
	TimelineCompleted         = "completed"
	TimelineFailed            = "failed"
)

type Job struct {
	JobID    string               `json:"jobId" bson:"jobId"`
	OrderID  string               `json:"orderId" bson:"orderId"`
	Username string               `json:"username,omitempty" bson:"username,omitempty"`
	Files    []FileEntry          `json:"files" bson:"files"`
	Status   JobStatus            `json:"status" bson:"status"`
	Timeline map[string]time.Time `json:"timeline,omitempty" bson:"timeline,omitempty"`
	Error    string               `json:"error,omitempty" bson:"error,omitempty"`
}

type FileEntry struct {
	FileID      FileRef     `json:"fileId" bson:"fileId"`
	Filename    string      `json:"filename" bson:"filename"`
	PrintConfig PrintConfig `json:"printConfig" bson:"printConfig"`
}

// IsTerminal reports whether no further transition is made by the poller.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed || s == JobStatusCancelled
}

// CanCommit reports whether a job in status s may be moved to completed or failed.
func (s JobStatus) CanCommit() bool {
	return s == JobStatusPending || s == JobStatusProcessing
}

// Annotation is the operator-facing label attached to every dispatched document.
func (j *Job) Annotation() Annotation {
	name := j.Username
	if name == "" {
		name = "Anonymous User"
	}
	return Annotation{Username: name, OrderID: j.OrderID, JobID: j.JobID}
}

type Annotation struct {
	Username string `json:"username"`
	OrderID  string `json:"Order ID"`
	JobID    string `json:"jobId,omitempty"`
}
