package codec

import (
	"errors"
	"testing"
)

func TestAppendCommand(t *testing.T) {
	tests := []struct {
		name    string
		cmd     string
		args    []any
		want    string
		wantErr error
	}{
		{
			name: "bare attention",
			cmd:  "",
			want: "AT\r\n",
		},
		{
			name: "no args",
			cmd:  "+GMR",
			want: "AT+GMR\r\n",
		},
		{
			name: "single int",
			cmd:  "+CIPMUX=",
			args: []any{1},
			want: "AT+CIPMUX=1\r\n",
		},
		{
			name: "multi digit and negative",
			cmd:  "+CIPTCPOPT=",
			args: []any{-1, 0, 999},
			want: "AT+CIPTCPOPT=-1,0,999\r\n",
		},
		{
			name: "quoted strings",
			cmd:  "+CWJAP=",
			args: []any{"MyNet", "s3cret"},
			want: "AT+CWJAP=\"MyNet\",\"s3cret\"\r\n",
		},
		{
			name: "escaped quote and backslash",
			cmd:  "+CWJAP=",
			args: []any{`a"b`, `c\d`},
			want: "AT+CWJAP=\"a\\\"b\",\"c\\\\d\"\r\n",
		},
		{
			name: "nil leaves empty slot",
			cmd:  "+CWJAP=",
			args: []any{"SSID", "pw", nil, 1},
			want: "AT+CWJAP=\"SSID\",\"pw\",,1\r\n",
		},
		{
			name: "name carries fixed prefix args",
			cmd:  "+CIPSERVER=1,",
			args: []any{8080},
			want: "AT+CIPSERVER=1,8080\r\n",
		},
		{
			name:    "unsupported arg type",
			cmd:     "+SLEEP=",
			args:    []any{'a'},
			wantErr: ErrArgType,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := make([]byte, 0, 64)
			got, err := AppendCommand(dst, tt.cmd, tt.args...)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AppendCommand error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				if len(got) != 0 {
					t.Errorf("failed compose left %q in dst", got)
				}
				return
			}
			if string(got) != tt.want {
				t.Errorf("AppendCommand = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppendCommand_Overflow(t *testing.T) {
	dst := make([]byte, 0, 10)
	got, err := AppendCommand(dst, "+CWJAP=", "network-name", "password")
	if !errors.Is(err, ErrBufferOverflow) {
		t.Fatalf("error = %v, want ErrBufferOverflow", err)
	}
	if len(got) != 0 {
		t.Errorf("overflowed compose left %q in dst", got)
	}
}

func TestAppendCommand_PreservesPrefix(t *testing.T) {
	dst := make([]byte, 0, 32)
	dst = append(dst, "xx"...)
	got, err := AppendCommand(dst, "+GMR")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "xxAT+GMR\r\n" {
		t.Errorf("AppendCommand = %q, want existing prefix retained", got)
	}
}
