package transcode

import "github.com/google/uuid"

const (
	WorkflowName = "course.transcode"

	ActivityRenderRendition  = "transcode.render_rendition"
	ActivityRecordRenditions = "transcode.record_renditions"
)

// Input addresses one video content row needing renditions.
type Input struct {
	CourseID  uuid.UUID `json:"course_id"`
	ContentID uuid.UUID `json:"content_id"`
	SourceKey string    `json:"source_key"`
	// Resolutions to produce, e.g. ["1080", "720", "480"]. Empty means the
	// worker-side default set.
	Resolutions []string `json:"resolutions,omitempty"`
}

// RenditionRequest is one per-resolution activity invocation.
type RenditionRequest struct {
	ContentID  uuid.UUID `json:"content_id"`
	SourceKey  string    `json:"source_key"`
	Resolution string    `json:"resolution"`
}

// RenditionResult reports the produced object key.
type RenditionResult struct {
	Resolution string `json:"resolution"`
	OutputKey  string `json:"output_key"`
}

// RecordRequest persists the completed resolution list on the content row.
type RecordRequest struct {
	ContentID   uuid.UUID `json:"content_id"`
	Resolutions []string  `json:"resolutions"`
}
