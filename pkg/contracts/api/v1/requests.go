// Package api contains the request and response contracts of the split API.
// Version v1 represents the current stable API version.
package api

// SplitRequest is the body of POST /api/split and the first websocket
// message of /ws/split. FilePayload is a data URI of the form
// data:<mime>;base64,<body>.
type SplitRequest struct {
	FilePayload string `json:"filePayload" validate:"required"`
	DateColumn  string `json:"dateColumn" validate:"required,column,max=255"`
}

// UploadForm describes the multipart fields of POST /api/split/upload.
// Filename is taken from the file part's header.
type UploadForm struct {
	Filename   string `json:"filename" validate:"required,filename,spreadsheet"`
	DateColumn string `json:"dateColumn" validate:"required,column,max=255"`
}

// Multipart field names of the upload endpoint
const (
	FormFieldFile       = "file"
	FormFieldDateColumn = "dateColumn"
)
