package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPyBytesLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", `b''`},
		{"print('hi')\n", `b"print('hi')\n"`},
		{`say "hi"`, `b'say "hi"'`},
		{`'"`, `b'\'"'`},
		{"a\\b\t\r\n", `b'a\\b\t\r\n'`},
		{"\x00\x1f\x7f\xff", `b'\x00\x1f\x7f\xff'`},
		{"caf\xc3\xa9", `b'caf\xc3\xa9'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PyBytesLiteral([]byte(tt.in)), "%q", tt.in)
	}
}

func TestPyStrLiteral(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"greetings/greeting.py", `'greetings/greeting.py'`},
		{"it's", `"it's"`},
		{`it's "x"`, `'it\'s "x"'`},
		{"café", `'café'`},
		{"\x00\n", `'\x00\n'`},
		{"\u00a0", `'\xa0'`},
		{"\u200b", `'\u200b'`},
		{"bad\xff", `'bad\xff'`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PyStrLiteral(tt.in), "%q", tt.in)
	}
}
