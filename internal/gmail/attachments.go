package gmail

import (
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/teemow/sheetmail/internal/logging"
)

const (
	// DefaultMaxMB is Gmail's total message size limit in megabytes.
	DefaultMaxMB = 25

	// Cushion is kept free below the budget for headers added in transit.
	Cushion = 100000

	bytesPerMB = 1024 * 1024

	octetStream = "application/octet-stream"
)

// Encoding selects how an attachment part is typed.
type Encoding int

const (
	// EncodingBinary is the fallback: the guessed type is kept, no parameters added.
	EncodingBinary Encoding = iota
	EncodingText
	EncodingImage
	EncodingAudio
	// EncodingApplication covers application/pdf only.
	EncodingApplication
)

func (e Encoding) String() string {
	switch e {
	case EncodingText:
		return "text"
	case EncodingImage:
		return "image"
	case EncodingAudio:
		return "audio"
	case EncodingApplication:
		return "application"
	default:
		return "binary"
	}
}

// EncodingFor maps a media type to its attachment encoding.
func EncodingFor(mainType, subType string) Encoding {
	switch mainType {
	case "text":
		return EncodingText
	case "image":
		return EncodingImage
	case "audio":
		return EncodingAudio
	case "application":
		if subType == "pdf" {
			return EncodingApplication
		}
	}
	return EncodingBinary
}

// compressionSuffixes mark a file as content-encoded; its inner type is not trusted.
var compressionSuffixes = map[string]bool{
	".gz": true, ".bz2": true, ".xz": true, ".z": true, ".br": true,
}

// fallbackTypes fill gaps in the platform MIME table.
var fallbackTypes = map[string]string{
	".txt":  "text/plain",
	".csv":  "text/csv",
	".md":   "text/markdown",
	".mp3":  "audio/mpeg",
	".wav":  "audio/x-wav",
	".ogg":  "audio/ogg",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".zip":  "application/zip",
	".doc":  "application/msword",
	".xls":  "application/vnd.ms-excel",
}

// GuessMediaType guesses a bare media type ("main/sub") from a file name.
// Unknown and compressed files are application/octet-stream.
func GuessMediaType(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" || compressionSuffixes[ext] {
		return octetStream
	}

	t := mime.TypeByExtension(ext)
	if t == "" {
		t = fallbackTypes[ext]
	}
	if t == "" {
		return octetStream
	}
	mediaType, _, err := mime.ParseMediaType(t)
	if err != nil || !strings.Contains(mediaType, "/") {
		return octetStream
	}
	return mediaType
}

// NewAttachment renders data as a base64 attachment part named after
// the base name of filename.
func NewAttachment(filename string, data []byte) *Part {
	mediaType := GuessMediaType(filename)
	mainType, subType, _ := strings.Cut(mediaType, "/")

	contentType := mediaType
	if EncodingFor(mainType, subType) == EncodingText {
		contentType = mime.FormatMediaType(mediaType, map[string]string{"charset": "utf-8"})
	}
	return newPart(contentType, filepath.Base(filename), data)
}

// PackResult reports what Pack did with each candidate file.
type PackResult struct {
	// Attached lists the files added to the message, in input order.
	Attached []string `json:"attached"`

	// NotAttempted lists the files left out once packing stopped.
	NotAttempted []string `json:"not_attempted,omitempty"`

	// Size is the message size after packing.
	Size int `json:"size"`

	// Budget is the configured maximum in bytes.
	Budget int `json:"budget"`
}

// Packer greedily attaches files to a message until the size budget is reached.
type Packer struct {
	// MaxMB is the total message budget in megabytes. Zero means DefaultMaxMB.
	MaxMB int

	// ReadFile loads an attachment. Defaults to os.ReadFile.
	ReadFile func(name string) ([]byte, error)

	Logger *slog.Logger
}

// PackAttachments attaches paths to msg within maxMB using the default Packer.
func PackAttachments(msg *Message, paths []string, maxMB int) (PackResult, error) {
	p := &Packer{MaxMB: maxMB}
	return p.Pack(msg, paths)
}

// Pack attaches files in input order. It stops at the first file whose
// encoded part does not fit the remaining margin; later files are not
// considered even if they are smaller. A read error aborts packing.
func (p *Packer) Pack(msg *Message, paths []string) (PackResult, error) {
	maxMB := p.MaxMB
	if maxMB == 0 {
		maxMB = DefaultMaxMB
	}
	readFile := p.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}

	budget := maxMB * bytesPerMB
	size := msg.Size()
	res := PackResult{Budget: budget}

	for i, path := range paths {
		margin := budget - size - Cushion
		if margin <= 0 {
			logger.Info("message size limit reached",
				slog.Int("added", len(res.Attached)),
				slog.Int("total", len(paths)))
			res.NotAttempted = append(res.NotAttempted, paths[i:]...)
			break
		}

		data, err := readFile(path)
		if err != nil {
			res.Size = size
			res.NotAttempted = append(res.NotAttempted, paths[i:]...)
			return res, fmt.Errorf("failed to read attachment %s: %w", path, err)
		}

		part := NewAttachment(path, data)
		added := msg.framedSize(part)
		if added > margin {
			logger.Info("attachment does not fit, packing stopped",
				logging.Attachment(part.Filename),
				logging.Bytes(added),
				slog.Int("margin", margin),
				slog.Int("added", len(res.Attached)),
				slog.Int("total", len(paths)))
			res.NotAttempted = append(res.NotAttempted, paths[i:]...)
			break
		}

		msg.Attach(part)
		size += added
		res.Attached = append(res.Attached, path)
		logger.Debug("attachment added",
			logging.Attachment(part.Filename),
			slog.String("content_type", part.ContentType),
			logging.Bytes(added),
			slog.Int("message_size", size))
	}

	res.Size = size
	return res, nil
}
