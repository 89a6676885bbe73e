package models

// Container formats an export can be packaged as
const (
	ExportFormatZIP = "zip"
	ExportFormatPDF = "pdf"
)

// ExportFile is a finished, fully buffered export ready to be downloaded
type ExportFile struct {
	FileName    string
	ContentType string
	Data        []byte
	Cards       int // number of records rendered
}
