package dto

// ExportQuery captures export query parameters.
type ExportQuery struct {
	AnalyticsQuery
	Format string `form:"format"`
}

// ExportFile is a rendered export ready to stream as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Content     []byte
}
