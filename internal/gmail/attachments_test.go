package gmail

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodingFor(t *testing.T) {
	tests := []struct {
		mainType string
		subType  string
		want     Encoding
	}{
		{"text", "plain", EncodingText},
		{"text", "html", EncodingText},
		{"image", "png", EncodingImage},
		{"audio", "mpeg", EncodingAudio},
		{"application", "pdf", EncodingApplication},
		{"application", "json", EncodingBinary},
		{"application", "octet-stream", EncodingBinary},
		{"video", "mp4", EncodingBinary},
		{"", "", EncodingBinary},
	}

	for _, tt := range tests {
		t.Run(tt.mainType+"/"+tt.subType, func(t *testing.T) {
			got := EncodingFor(tt.mainType, tt.subType)
			assert.Equal(t, tt.want, got)
			assert.NotEmpty(t, got.String())
		})
	}
}

func TestGuessMediaType(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"photo.png", "image/png"},
		{"PHOTO.PNG", "image/png"},
		{"report.pdf", "application/pdf"},
		{"notes.txt", "text/plain"},
		{"song.mp3", "audio/mpeg"},
		{"archive.tar.gz", octetStream},
		{"notes.txt.gz", octetStream},
		{"data.bz2", octetStream},
		{"README", octetStream},
		{"mystery.zzzunknown", octetStream},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.want, GuessMediaType(tt.filename))
		})
	}
}

func TestNewAttachment(t *testing.T) {
	tests := []struct {
		path            string
		wantContentType string
	}{
		{"/data/img/photo.png", "image/png"},
		{"/data/report.pdf", "application/pdf"},
		{"notes.txt", "text/plain; charset=utf-8"},
		{"blob.bin.gz", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			p := NewAttachment(tt.path, []byte("content"))
			assert.Equal(t, tt.wantContentType, p.ContentType)
			assert.Equal(t, filepath.Base(tt.path), p.Filename)
			assert.Contains(t, string(p.Bytes()), "Content-Disposition: attachment; filename=")
			assert.Contains(t, string(p.Bytes()), "Content-Transfer-Encoding: base64")
		})
	}
}

// writeSized creates a file of n bytes in dir.
func writeSized(t *testing.T, dir, name string, n int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), n), 0600))
	return path
}

func newTestMessage(t *testing.T) *Message {
	t.Helper()
	msg, err := BuildMessage(Headers{To: "a@example.com", Subject: "Sending via resumable upload"}, "Hello there!", false)
	require.NoError(t, err)
	return msg
}

func TestPackAttachmentsAllFit(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeSized(t, dir, "c.txt", 1000),
		writeSized(t, dir, "a.png", 2000),
		writeSized(t, dir, "b.pdf", 3000),
	}
	msg := newTestMessage(t)

	res, err := PackAttachments(msg, paths, 1)
	require.NoError(t, err)

	assert.Equal(t, paths, res.Attached)
	assert.Empty(t, res.NotAttempted)
	assert.Equal(t, []string{"c.txt", "a.png", "b.pdf"}, msg.Attachments())
	assert.Equal(t, msg.Size(), res.Size)
	assert.Equal(t, 1*1024*1024, res.Budget)
}

func TestPackAttachmentsStopsAtFirstOversized(t *testing.T) {
	dir := t.TempDir()
	large := writeSized(t, dir, "large.bin", 1400000)
	medium := writeSized(t, dir, "medium.bin", 70000)
	tiny := writeSized(t, dir, "tiny.txt", 1000)

	var reads []string
	packer := &Packer{
		MaxMB: 2,
		ReadFile: func(name string) ([]byte, error) {
			reads = append(reads, name)
			return os.ReadFile(name)
		},
	}

	msg := newTestMessage(t)
	res, err := packer.Pack(msg, []string{large, medium, tiny})
	require.NoError(t, err)

	assert.Equal(t, []string{large}, res.Attached)
	assert.Equal(t, []string{medium, tiny}, res.NotAttempted)
	// The tiny file would fit but is never read.
	assert.Equal(t, []string{large, medium}, reads)
	assert.LessOrEqual(t, msg.Size(), 2*1024*1024-Cushion)
}

func TestPackAttachmentsNeverExceedsBudget(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, n := range []int{300000, 250000, 200000, 150000, 100000, 50000} {
		paths = append(paths, writeSized(t, dir, string(rune('a'+i))+".dat", n))
	}

	for _, maxMB := range []int{1, 2} {
		msg := newTestMessage(t)
		res, err := PackAttachments(msg, paths, maxMB)
		require.NoError(t, err)

		assert.LessOrEqual(t, msg.Size(), maxMB*1024*1024-Cushion)
		assert.Equal(t, len(paths), len(res.Attached)+len(res.NotAttempted))
		assert.Equal(t, paths[:len(res.Attached)], res.Attached)
	}
}

func TestPackAttachmentsZeroMarginAttachesNothing(t *testing.T) {
	dir := t.TempDir()
	paths := []string{writeSized(t, dir, "a.txt", 10)}

	msg := newTestMessage(t)
	packer := &Packer{MaxMB: -1}
	res, err := packer.Pack(msg, paths)
	require.NoError(t, err)

	assert.Empty(t, res.Attached)
	assert.Equal(t, paths, res.NotAttempted)
	assert.Empty(t, msg.Attachments())
}

func TestPackAttachmentsReadError(t *testing.T) {
	dir := t.TempDir()
	ok := writeSized(t, dir, "ok.txt", 10)
	missing := filepath.Join(dir, "missing.txt")

	msg := newTestMessage(t)
	res, err := PackAttachments(msg, []string{ok, missing}, 1)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Equal(t, []string{ok}, res.Attached)
	assert.Equal(t, []string{missing}, res.NotAttempted)
}
