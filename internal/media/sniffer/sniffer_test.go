package sniffer

import (
	"errors"
	"net/http"
	"testing"
)

func TestDetectHead(t *testing.T) {
	tests := []struct {
		name string
		head []byte
		want MediaType
		ext  string
	}{
		{"jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00}, TypeJPEG, "jpg"},
		{"png", append(append([]byte{}, pngMagic...), 0, 0, 0, 13), TypePNG, "png"},
		{"webp", []byte("RIFF\x24\x00\x00\x00WEBPVP8 "), TypeWEBP, "webp"},
		{"heic", []byte("\x00\x00\x00\x18ftypheic\x00\x00\x00\x00"), TypeHEIC, "heic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectHead(tt.head)
			if err != nil {
				t.Fatalf("detect: %v", err)
			}
			if got.Type != tt.want || got.Ext() != tt.ext {
				t.Fatalf("got %+v ext %s, want %s ext %s", got, got.Ext(), tt.want, tt.ext)
			}
		})
	}
}

func TestDetectHeadRejects(t *testing.T) {
	for _, head := range [][]byte{nil, []byte("<svg xmlns=\"http://www.w3.org/2000/svg\">"), []byte("GIF89a......"), []byte("%PDF-1.7")} {
		if _, err := DetectHead(head); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("%q: expected ErrUnsupportedType, got %v", head, err)
		}
	}
}

func TestMimeTypeFromHTTP(t *testing.T) {
	h := http.Header{}
	h.Set("Content-Type", "image/jpeg; charset=binary")
	if got := MimeTypeFromHTTP(h); got != "image/jpeg" {
		t.Fatalf("got %q", got)
	}
}
