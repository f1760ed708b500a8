package http

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
)

const formContentType = "application/x-www-form-urlencoded"

// bodyPlan is the single body source chosen for a transfer. Precedence is
// raw body, then upload, then form fields.
type bodyPlan struct {
	raw         []byte
	upload      *Payload
	uploadField string
	fields      map[string]string
}

func (r *Request) planBody() (bodyPlan, bool) {
	switch {
	case len(r.body) > 0:
		return bodyPlan{raw: r.body}, true
	case r.upload != nil:
		plan := bodyPlan{upload: r.upload, uploadField: r.uploadField}
		if r.uploadField != "" {
			plan.fields = r.Fields()
		}
		return plan, true
	case len(r.fields) > 0:
		return bodyPlan{fields: r.Fields()}, true
	}
	return bodyPlan{}, false
}

func (p bodyPlan) kind() string {
	switch {
	case p.raw != nil:
		return "raw"
	case p.upload != nil && p.uploadField == "":
		return "upload"
	case p.upload != nil:
		return "multipart-upload"
	}
	return "fields"
}

// materialize turns the plan into a transport body. The returned closer
// releases any file opened for the upload.
func (p bodyPlan) materialize() (*Body, io.Closer, error) {
	if p.raw != nil {
		return &Body{Data: p.raw, Length: int64(len(p.raw)), ContentType: formContentType}, nopCloser{}, nil
	}

	if p.upload == nil {
		prefix, trailer, contentType, err := multipartEnvelope(p.fields, "", nil)
		if err != nil {
			return nil, nil, err
		}
		data := append(prefix, trailer...)
		return &Body{Data: data, Length: int64(len(data)), ContentType: contentType}, nopCloser{}, nil
	}

	src, closer, err := p.upload.open()
	if err != nil {
		return nil, nil, fmt.Errorf("opening upload: %w", err)
	}

	if p.uploadField == "" {
		if p.upload.Streamed() {
			return &Body{
				Reader:      newUploadCursor(src, p.upload.size),
				Length:      p.upload.size,
				ContentType: p.upload.ContentType,
				Streamed:    true,
			}, closer, nil
		}
		data, err := readPayload(src, p.upload.size)
		if err != nil {
			closer.Close()
			return nil, nil, err
		}
		return &Body{Data: data, Length: int64(len(data)), ContentType: p.upload.ContentType}, closer, nil
	}

	prefix, trailer, contentType, err := multipartEnvelope(p.fields, p.uploadField, p.upload)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	length := int64(len(prefix)) + p.upload.size + int64(len(trailer))
	if p.upload.Streamed() {
		return &Body{
			Reader:      io.MultiReader(bytes.NewReader(prefix), newUploadCursor(src, p.upload.size), bytes.NewReader(trailer)),
			Length:      length,
			ContentType: contentType,
			Streamed:    true,
		}, closer, nil
	}
	data, err := readPayload(src, p.upload.size)
	if err != nil {
		closer.Close()
		return nil, nil, err
	}
	buf := make([]byte, 0, length)
	buf = append(buf, prefix...)
	buf = append(buf, data...)
	buf = append(buf, trailer...)
	return &Body{Data: buf, Length: length, ContentType: contentType}, closer, nil
}

func readPayload(src io.ReaderAt, size int64) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := src.ReadAt(buf, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("reading upload: %w", err)
	}
	return buf, nil
}

// multipartEnvelope renders the form fields and, when file is set, the header
// of a file part. The file content goes between prefix and trailer.
func multipartEnvelope(fields map[string]string, fileField string, file *Payload) (prefix, trailer []byte, contentType string, err error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, fields[k]); err != nil {
			return nil, nil, "", err
		}
	}

	if file != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`,
			escapeQuotes(fileField), escapeQuotes(file.Filename)))
		h.Set("Content-Type", file.ContentType)
		if _, err := w.CreatePart(h); err != nil {
			return nil, nil, "", err
		}
	}
	prefix = append([]byte(nil), buf.Bytes()...)
	buf.Reset()

	if err := w.Close(); err != nil {
		return nil, nil, "", err
	}
	trailer = append([]byte(nil), buf.Bytes()...)
	return prefix, trailer, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
