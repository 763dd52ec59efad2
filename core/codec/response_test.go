package codec

import (
	"errors"
	"testing"
)

func TestStatusText(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "OK"},
		{404, "Not Found"},
		{500, "Internal Server Error"},
		{299, "Unknown"},
		{700, "Unknown"},
		{-1, "Unknown"},
	}
	for _, tt := range tests {
		if got := StatusText(tt.code); got != tt.want {
			t.Errorf("StatusText(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestAppendResponse(t *testing.T) {
	dst := make([]byte, 0, 256)
	got, err := AppendResponse(dst, 200, "text/html", []byte("<h1>hi</h1>"))
	if err != nil {
		t.Fatal(err)
	}
	want := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html\r\n" +
		"Content-Length: 11\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"<h1>hi</h1>"
	if string(got) != want {
		t.Errorf("AppendResponse =\n%q\nwant\n%q", got, want)
	}
}

func TestAppendResponse_EmptyBody(t *testing.T) {
	got, err := AppendResponse(make([]byte, 0, 128), 204, "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	want := "HTTP/1.1 204 No Content\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 0\r\n" +
		"Connection: close\r\n" +
		"\r\n"
	if string(got) != want {
		t.Errorf("AppendResponse = %q, want %q", got, want)
	}
}

func TestAppendResponse_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		cap  int
	}{
		{"no room for headers", 16},
		{"headers fit body does not", 100},
	}
	body := []byte("0123456789012345678901234567890123456789")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AppendResponse(make([]byte, 0, tt.cap), 200, "text/plain", body)
			if !errors.Is(err, ErrBufferOverflow) {
				t.Fatalf("error = %v, want ErrBufferOverflow", err)
			}
			if len(got) != 0 {
				t.Errorf("failed compose left %d bytes in dst", len(got))
			}
		})
	}
}
