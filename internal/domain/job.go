package domain

// JobState enumerates the lifecycle states of an image transformation job.
type JobState string

const (
	JobStateQueued     JobState = "queued"
	JobStateProcessing JobState = "processing"
	JobStateCompleted  JobState = "completed"
	JobStateFailed     JobState = "failed"
)

// IsTerminal reports whether the state admits no further transitions.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Valid reports whether the value is one of the known lifecycle states.
func (s JobState) Valid() bool {
	switch s {
	case JobStateQueued, JobStateProcessing, JobStateCompleted, JobStateFailed:
		return true
	}
	return false
}

// ImageRef points at a stored source image.
type ImageRef struct {
	Key      string `json:"key"`
	MimeType string `json:"mime_type"`
}

// JobMessage is the queue payload connecting the ingress handler to the
// consumer. RequestID doubles as the state-store key and the correlation
// key for polling.
type JobMessage struct {
	Image     ImageRef `json:"image"`
	StyleID   string   `json:"styleID"`
	UserID    string   `json:"userID"`
	Timestamp int64    `json:"timestamp"`
	RequestID string   `json:"requestId"`
}

// SourceImageKey builds the object-store key for an uploaded image,
// namespaced by owner so concurrent uploads never collide.
func SourceImageKey(userID, requestID string) string {
	return userID + "/" + requestID
}

// ResultImageKey builds the object-store key for a generated image. The
// pipeline always emits PNG.
func ResultImageKey(requestID string) string {
	return "processed/" + requestID + ".png"
}
