package qr

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		want   Payload
		wantOK bool
	}{
		{name: "blank", text: "   ", wantOK: false},
		{name: "bare id", text: " 6f1c ", want: Payload{StudentID: "6f1c"}, wantOK: true},
		{name: "email", text: "a@b.lk", want: Payload{StudentID: "a@b.lk"}, wantOK: true},
		{
			name:   "json payload",
			text:   `{"studentId":" s-1 ","name":"Nimal","nic":"200012345678"}`,
			want:   Payload{StudentID: "s-1", Name: "Nimal", NIC: "200012345678"},
			wantOK: true,
		},
		{name: "json without id", text: `{"name":"x"}`, want: Payload{StudentID: `{"name":"x"}`}, wantOK: true},
		{name: "broken json", text: `{"studentId":`, want: Payload{StudentID: `{"studentId":`}, wantOK: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Parse(tt.text)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeRoundTripsThroughParse(t *testing.T) {
	p := Payload{StudentID: "abc", Name: "Kamal Perera", NIC: "991234567V"}
	text, err := p.Encode()
	require.NoError(t, err)
	got, ok := Parse(text)
	require.True(t, ok)
	assert.Equal(t, p, got)
}

func TestPNG(t *testing.T) {
	pngMagic := []byte{0x89, 'P', 'N', 'G'}

	img, err := PNG(Payload{StudentID: "abc"}, 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	img, err = PNG(Payload{StudentID: "abc"}, 10_000)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, pngMagic))

	_, err = PNG(Payload{}, 128)
	assert.Error(t, err)
}
