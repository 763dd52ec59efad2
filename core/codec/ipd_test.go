package codec

import (
	"errors"
	"testing"
)

func TestFindMarker(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int
	}{
		{"at start", "+IPD,1,5:hello", 0},
		{"after noise", "\r\nOK\r\n+IPD,1,5:hello", 6},
		{"absent", "GET / HTTP/1.1\r\n", -1},
		{"partial marker only", "+IP", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FindMarker([]byte(tt.in)); got != tt.want {
				t.Errorf("FindMarker(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseIPDHeader(t *testing.T) {
	tests := []struct {
		name       string
		in         string
		want       IPDHeader
		wantOffset int
		wantErr    error
	}{
		{
			name:       "long form with peer",
			in:         `+IPD,3,11,"10.0.0.5",54321:hello world`,
			want:       IPDHeader{Conn: 3, Length: 11, PeerIP: "10.0.0.5", PeerPort: 54321},
			wantOffset: 27,
		},
		{
			name:       "short form",
			in:         "+IPD,2,5:hello",
			want:       IPDHeader{Conn: 2, Length: 5},
			wantOffset: 9,
		},
		{
			name:       "multi digit length",
			in:         "+IPD,0,1460:x",
			want:       IPDHeader{Conn: 0, Length: 1460},
			wantOffset: 12,
		},
		{
			name:    "cut before conn",
			in:      "+IPD,",
			wantErr: ErrIncompleteHeader,
		},
		{
			name:    "cut inside length",
			in:      "+IPD,2,14",
			wantErr: ErrIncompleteHeader,
		},
		{
			name:    "cut inside quoted peer",
			in:      `+IPD,3,11,"10.0.`,
			wantErr: ErrIncompleteHeader,
		},
		{
			name:    "cut before final colon",
			in:      `+IPD,3,11,"10.0.0.5",54321`,
			wantErr: ErrIncompleteHeader,
		},
		{
			name:    "non numeric conn",
			in:      "+IPD,x,5:hello",
			wantErr: ErrBadHeader,
		},
		{
			name:    "zero length",
			in:      "+IPD,1,0:x",
			wantErr: ErrBadHeader,
		},
		{
			name:    "garbage after length",
			in:      "+IPD,1,5;hello",
			wantErr: ErrBadHeader,
		},
		{
			name:    "unquoted peer",
			in:      "+IPD,1,5,10.0.0.5,80:hello",
			wantErr: ErrBadHeader,
		},
		{
			name:    "conn field too wide",
			in:      "+IPD,99999,5:hello",
			wantErr: ErrBadHeader,
		},
		{
			name:    "endless header never completes",
			in:      "+IPD,1,5,\"" + "123456789012345678901234567890123456789012345678" + "\":x",
			wantErr: ErrBadHeader,
		},
		{
			name:    "not a marker",
			in:      "+XYZ,1,5:hello",
			wantErr: ErrBadHeader,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, off, err := ParseIPDHeader([]byte(tt.in))
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ParseIPDHeader(%q) error = %v, want %v", tt.in, err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}
			if got != tt.want {
				t.Errorf("header = %+v, want %+v", got, tt.want)
			}
			if off != tt.wantOffset {
				t.Errorf("payload offset = %d, want %d", off, tt.wantOffset)
			}
			if rest := tt.in[off:]; tt.name == "long form with peer" && rest != "hello world" {
				t.Errorf("payload slice = %q, want %q", rest, "hello world")
			}
		})
	}
}

func TestIPDHeader_HasPeer(t *testing.T) {
	with := IPDHeader{Conn: 1, Length: 2, PeerIP: "1.2.3.4", PeerPort: 80}
	without := IPDHeader{Conn: 1, Length: 2}
	if !with.HasPeer() || without.HasPeer() {
		t.Errorf("HasPeer: with = %v, without = %v", with.HasPeer(), without.HasPeer())
	}
}
