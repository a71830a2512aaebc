package domain

import (
	"time"

	"cloud.google.com/go/civil"
)

// JobName identifies a scheduled job.
type JobName string

const (
	JobDailyAnalytics    JobName = "DAILY_ANALYTICS"
	JobGenerateDocuments JobName = "GENERATE_DOCUMENTS"
	JobSyncOrders        JobName = "SYNC_ORDERS"
)

// JobStatus is the lifecycle state of a job run.
type JobStatus string

const (
	JobRunning JobStatus = "RUNNING"
	JobSuccess JobStatus = "SUCCESS"
	JobFailed  JobStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobSuccess || s == JobFailed
}

// JobRun records one execution of a job for a region-local date.
type JobRun struct {
	ID        int64         `json:"id"`
	JobName   JobName       `json:"job_name"`
	RegionID  int64         `json:"region_id"`
	RunDate   civil.Date    `json:"run_date"`
	StartedAt time.Time     `json:"started_at"`
	Status    JobStatus     `json:"status"`
	Message   string        `json:"message,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// DocumentType names the artifacts the documents job produces.
type DocumentType string

const (
	DocPickingList DocumentType = "PICKING_LIST"
	DocPODraft     DocumentType = "PO_DRAFT"
)

// Document is the metadata of a generated artifact.
type Document struct {
	ID          int64        `json:"id"`
	RegionID    int64        `json:"region_id"`
	Type        DocumentType `json:"document_type"`
	Date        civil.Date   `json:"document_date"`
	FileName    string       `json:"file_name"`
	URL         string       `json:"file_url"`
	GeneratedAt time.Time    `json:"generated_at"`
}
