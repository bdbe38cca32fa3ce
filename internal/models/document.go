package models

import "time"

// Job statuses recorded on a PrintJob as it moves through the flow.
const (
	StatusResizing   = "RESIZING"
	StatusResized    = "RESIZED"
	StatusDispatched = "DISPATCHED"
	StatusFailed     = "FAILED"
)

// PrintJob is the Firestore record for one resize, and for requests coming
// through the print API, the hand-off to the printer.
type PrintJob struct {
	FileHash            string    `firestore:"fileHash,omitempty"`
	SourceObject        string    `firestore:"sourceObject,omitempty"`
	OutputObject        string    `firestore:"outputObject,omitempty"`
	PrinterName         string    `firestore:"printerName,omitempty"`
	JobName             string    `firestore:"jobName,omitempty"`
	Status              string    `firestore:"status,omitempty"`
	ErrorKind           string    `firestore:"errorKind,omitempty"`
	ErrorDetails        string    `firestore:"errorDetails,omitempty"`
	Scale               float64   `firestore:"scale,omitempty"`
	PageCount           int       `firestore:"pageCount,omitempty"`
	WorkflowExecutionID string    `firestore:"workflowExecutionId,omitempty"` // For traceability
	CreatedAt           time.Time `firestore:"createdAt,omitempty"`
}
