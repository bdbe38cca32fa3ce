package models

// These structs define the JSON payloads exchanged with print API clients,
// the print dispatch workflow and GCS notifications.

// PrintRequest is the body of POST /api/print.
type PrintRequest struct {
	Filename    string `json:"filename"`
	PrinterName string `json:"printer_name"`
}

// ResponseMessage is returned for every print API call. Status is
// "success" or "error".
type ResponseMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// DispatchRequest is the argument of the print dispatch workflow.
type DispatchRequest struct {
	JobID       string `json:"jobId"`
	GCSUri      string `json:"gcsUri"`
	PrinterName string `json:"printerName"`
	JobName     string `json:"jobName"`
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}
