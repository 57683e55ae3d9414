package protocol

import (
	"fmt"
	"io"
	"net/http"
)

const (
	ContentJSON  = "application/json"
	ContentPlain = "text/plain"
)

type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

func OK(contentType string, body []byte) Response {
	return Response{Status: http.StatusOK, ContentType: contentType, Body: body}
}

// Accepted acknowledges an action or command.
func Accepted() Response {
	return Response{Status: http.StatusCreated, ContentType: ContentPlain}
}

func NotFound() Response {
	return Response{Status: http.StatusNotFound, ContentType: ContentPlain, Body: []byte("not found")}
}

func InternalError(msg string) Response {
	return Response{Status: http.StatusInternalServerError, ContentType: ContentPlain, Body: []byte(msg)}
}

// WriteTo frames r as a status line, Content-Type, Connection: Close, a blank
// line and the body. No other headers are emitted.
func (r Response) WriteTo(w io.Writer) (int64, error) {
	ct := r.ContentType
	if ct == "" {
		ct = ContentPlain
	}
	n, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Type: %s\r\nConnection: Close\r\n\r\n",
		r.Status, http.StatusText(r.Status), ct)
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(r.Body)
	return int64(n + m), err
}
