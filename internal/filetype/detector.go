package filetype

import (
	"fmt"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
)

// PDFMime is the only content type the editor accepts as a source.
const PDFMime = "application/pdf"

// FileTypeInfo contains detected file type information
type FileTypeInfo struct {
	MIMEType    string
	Extension   string
	Supported   bool
	Description string
}

// Detector handles file type detection using magic bytes
type Detector struct{}

// New creates a new file type detector
func New() *Detector {
	return &Detector{}
}

// Detect detects the actual file type of an upload using magic bytes, not its name
func (d *Detector) Detect(data []byte) *FileTypeInfo {
	mtype := mimetype.Detect(data)

	info := &FileTypeInfo{
		MIMEType:  mtype.String(),
		Extension: mtype.Extension(),
	}
	d.classify(info, mtype)

	log.Debug().Str("mime", info.MIMEType).Str("ext", info.Extension).Int("bytes", len(data)).Msg("detected file type")
	return info
}

// classify marks PDFs as supported and describes everything else
func (d *Detector) classify(info *FileTypeInfo, mtype *mimetype.MIME) {
	switch {
	case mtype.Is(PDFMime):
		info.Supported = true
		info.Description = "PDF document"
	case strings.HasPrefix(info.MIMEType, "image/"):
		info.Description = "Image file; convert it to PDF first"
	case mtype.Is("application/zip"), mtype.Is("application/x-ole-storage"):
		info.Description = "Office or archive file; export it as PDF first"
	default:
		info.Description = fmt.Sprintf("Unsupported file type: %s", info.MIMEType)
	}
}

// IsPDF reports whether data starts like a PDF document
func (d *Detector) IsPDF(data []byte) bool {
	return d.Detect(data).Supported
}
