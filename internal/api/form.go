package api

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"sort"
)

// File is an upload attached to a Form.
type File struct {
	Field    string
	Filename string
	Data     io.Reader
}

// Form is a multipart payload for the admin create/update endpoints.
// Multi-valued fields are sent as repeated parts.
type Form struct {
	fields map[string][]string
	files  []File
}

func NewForm() *Form {
	return &Form{fields: make(map[string][]string)}
}

func (f *Form) Set(name, value string) *Form {
	f.fields[name] = []string{value}
	return f
}

func (f *Form) Add(name string, values ...string) *Form {
	f.fields[name] = append(f.fields[name], values...)
	return f
}

func (f *Form) Attach(file File) *Form {
	if file.Data != nil {
		f.files = append(f.files, file)
	}
	return f
}

func (f *Form) Value(name string) string {
	if v := f.fields[name]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// Encode renders the form as multipart/form-data. Field parts are written in
// name order so payloads are reproducible.
func (f *Form) Encode() (io.Reader, string, error) {
	if f == nil {
		f = NewForm()
	}
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	names := make([]string, 0, len(f.fields))
	for name := range f.fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, v := range f.fields[name] {
			if err := w.WriteField(name, v); err != nil {
				return nil, "", fmt.Errorf("writing field %s: %w", name, err)
			}
		}
	}
	for _, file := range f.files {
		part, err := w.CreateFormFile(file.Field, file.Filename)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part %s: %w", file.Field, err)
		}
		if _, err := io.Copy(part, file.Data); err != nil {
			return nil, "", fmt.Errorf("copying file %s: %w", file.Filename, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart writer: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
