package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldUploadID is the standardized structured logging key for upload identifiers.
	FieldUploadID = "upload_id"
	// FieldRoomID is the standardized structured logging key for room identifiers.
	FieldRoomID = "room_id"
	// FieldClient is the standardized structured logging key for upload client names.
	FieldClient = "client"
	// FieldProject is the standardized structured logging key for upload project names.
	FieldProject = "project"
	// FieldRequestID is the standardized structured logging key for request correlation identifiers.
	FieldRequestID = "request_id"
)
