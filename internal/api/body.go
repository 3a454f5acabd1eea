package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"sort"
	"strings"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// Body is a request payload. The encoding is picked by the caller through the
// concrete type: JSONBody, FormBody or *MultipartBody.
type Body interface {
	encode() (io.Reader, string, error)
}

// JSONBody is encoded with encoding/json and sent as application/json.
type JSONBody struct {
	Value any
}

func (b JSONBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.Value)
	if err != nil {
		return nil, "", fmt.Errorf("encoding json body: %w", err)
	}

	return bytes.NewReader(data), contentTypeJSON, nil
}

// FormBody is sent as application/x-www-form-urlencoded.
type FormBody url.Values

func (b FormBody) encode() (io.Reader, string, error) {
	return strings.NewReader(url.Values(b).Encode()), contentTypeForm, nil
}

// File is one file part of a multipart payload.
type File struct {
	Field   string
	Name    string
	Content io.Reader
}

// MultipartBody is sent as multipart/form-data. The content type, including
// the boundary, always comes from the multipart writer.
type MultipartBody struct {
	Fields map[string]string
	Files  []File
}

func (b *MultipartBody) AddField(key, value string) {
	if b.Fields == nil {
		b.Fields = make(map[string]string)
	}
	b.Fields[key] = value
}

func (b *MultipartBody) AddFile(field, name string, content io.Reader) {
	b.Files = append(b.Files, File{Field: field, Name: name, Content: content})
}

func (b *MultipartBody) encode() (io.Reader, string, error) {
	if b == nil {
		b = &MultipartBody{}
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(b.Fields))
	for key := range b.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		field, err := w.CreateFormField(key)
		if err != nil {
			return nil, "", err
		}

		if _, err := io.Copy(field, strings.NewReader(b.Fields[key])); err != nil {
			return nil, "", err
		}
	}

	for _, f := range b.Files {
		if f.Content == nil {
			return nil, "", fmt.Errorf("file %q has no content", f.Name)
		}

		part, err := w.CreateFormFile(f.Field, f.Name)
		if err != nil {
			return nil, "", err
		}

		if _, err := io.Copy(part, f.Content); err != nil {
			return nil, "", fmt.Errorf("copying file %q: %w", f.Name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	return &buf, w.FormDataContentType(), nil
}
