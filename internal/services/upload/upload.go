// Package upload turns the two ways a user can pick a file (click-to-browse
// and drag-and-drop) into one Selection. Both triggers end in Select, so any
// rule about what a selection looks like lives in exactly one place.
package upload

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNoFile means nothing was selected.
var ErrNoFile = errors.New("no file selected")

// Trigger records how the file arrived.
type Trigger string

const (
	TriggerBrowse Trigger = "browse"
	TriggerDrop   Trigger = "drop"
)

// FormField is the multipart field name for the file, on both the app's
// forms and the analysis API.
const FormField = "file"

// Selection is one chosen file, held in memory for a single request.
type Selection struct {
	Name        string
	ContentType string
	Data        []byte
	Trigger     Trigger
}

// Size returns the number of bytes selected.
func (s *Selection) Size() int {
	return len(s.Data)
}

// Select is the single entry point for a file selection. The name is
// reduced to its base (browsers may send full paths) and the content type
// is sniffed when the client did not supply a useful one. No type or size
// rules are applied: any file is forwarded as-is.
func Select(trigger Trigger, name, contentType string, r io.Reader) (*Selection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read selected file: %w", err)
	}

	name = baseName(name)
	if name == "" && len(data) == 0 {
		return nil, ErrNoFile
	}
	if name == "" {
		name = "upload" + mimetype.Detect(data).Extension()
	}

	contentType = strings.TrimSpace(contentType)
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mimetype.Detect(data).String()
	}

	return &Selection{
		Name:        name,
		ContentType: contentType,
		Data:        data,
		Trigger:     trigger,
	}, nil
}

// FromForm reads the file field of a multipart form. A missing field is
// ErrNoFile. The trigger is whatever the page reported in the "trigger"
// field; unknown values count as browse.
func FromForm(form *multipart.Form) (*Selection, error) {
	if form == nil || len(form.File[FormField]) == 0 {
		return nil, ErrNoFile
	}
	fh := form.File[FormField][0]
	if fh.Filename == "" && fh.Size == 0 {
		return nil, ErrNoFile
	}

	trigger := TriggerBrowse
	if vals := form.Value["trigger"]; len(vals) > 0 && Trigger(vals[0]) == TriggerDrop {
		trigger = TriggerDrop
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open uploaded file: %w", err)
	}
	defer f.Close()

	return Select(trigger, fh.Filename, fh.Header.Get("Content-Type"), f)
}

// FromRaw reads a file sent as the whole request body, which is how the
// drop zone posts when it bypasses the form.
func FromRaw(body io.Reader, name, contentType string) (*Selection, error) {
	if body == nil {
		return nil, ErrNoFile
	}
	return Select(TriggerDrop, name, contentType, body)
}

func baseName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, `\`, "/"))
	if name == "" {
		return ""
	}
	base := filepath.Base(name)
	if base == "." || base == "/" {
		return ""
	}
	return base
}
