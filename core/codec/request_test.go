package codec

import (
	"errors"
	"strings"
	"testing"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Request
		wantErr error
	}{
		{
			name: "plain get",
			in:   "GET /index.html HTTP/1.1\r\nHost: modem\r\n\r\n",
			want: Request{Method: "GET", Path: "/index.html"},
		},
		{
			name: "query string",
			in:   "GET /led?state=on&n=2 HTTP/1.1\r\n\r\n",
			want: Request{Method: "GET", Path: "/led", Query: "state=on&n=2"},
		},
		{
			name: "post",
			in:   "POST /update HTTP/1.1\r\nContent-Length: 0\r\n\r\n",
			want: Request{Method: "POST", Path: "/update"},
		},
		{
			name: "no version",
			in:   "GET /\r\n",
			want: Request{Method: "GET", Path: "/"},
		},
		{
			name: "query without version",
			in:   "GET /a?b=1\r\n",
			want: Request{Method: "GET", Path: "/a", Query: "b=1"},
		},
		{
			name:    "no line terminator",
			in:      "GET / HTTP/1.1",
			wantErr: ErrNoRequestLine,
		},
		{
			name:    "empty input",
			in:      "",
			wantErr: ErrNoRequestLine,
		},
		{
			name:    "method only",
			in:      "GET\r\n",
			wantErr: ErrBadRequestLine,
		},
		{
			name:    "leading space",
			in:      " / HTTP/1.1\r\n",
			wantErr: ErrBadRequestLine,
		},
		{
			name:    "empty path",
			in:      "GET ?x=1 HTTP/1.1\r\n",
			wantErr: ErrBadRequestLine,
		},
		{
			name:    "method too long",
			in:      "UNRECOGNIZABLE / HTTP/1.1\r\n",
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "path too long",
			in:      "GET /" + strings.Repeat("a", MaxPathLen) + " HTTP/1.1\r\n",
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "query too long",
			in:      "GET /a?" + strings.Repeat("q", MaxQueryLen+1) + " HTTP/1.1\r\n",
			wantErr: ErrFieldTooLong,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRequest([]byte(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseRequest error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && got != tt.want {
				t.Errorf("ParseRequest = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRequest_CopiesOutOfSource(t *testing.T) {
	raw := []byte("GET /stats HTTP/1.1\r\n")
	req, err := ParseRequest(raw)
	if err != nil {
		t.Fatal(err)
	}
	for i := range raw {
		raw[i] = 'x'
	}
	if req.Method != "GET" || req.Path != "/stats" {
		t.Errorf("request aliases reused source buffer: %+v", req)
	}
}
