package fetch_test

import (
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/memvault/memvault/pkg/model"
	"github.com/memvault/memvault/pkg/usecase/fetch"
)

func TestClassify(t *testing.T) {
	zipSig := []byte{0x50, 0x4B, 0x03, 0x04, 0x14, 0x00, 0x00, 0x00}
	jpegSig := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	pngSig := []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00}
	mp4Sig := []byte{
		0x00, 0x00, 0x00, 0x18, 'f', 't', 'y', 'p', 'i', 's', 'o', 'm',
		0x00, 0x00, 0x02, 0x00, 'i', 's', 'o', 'm', 'i', 's', 'o', '2',
	}

	cases := []struct {
		name string
		data []byte
		kind fetch.PayloadKind
		ext  string
	}{
		{"zip archive", zipSig, fetch.PayloadArchive, "zip"},
		{"jpeg", jpegSig, fetch.PayloadImage, "jpg"},
		{"png", pngSig, fetch.PayloadImage, "png"},
		{"mp4", mp4Sig, fetch.PayloadVideo, "mp4"},
		{"html error page", []byte("<!DOCTYPE html><html><body>429</body></html>"), fetch.PayloadHTML, ""},
		{"html with leading whitespace", []byte("\n  <html><body>busy</body></html>"), fetch.PayloadHTML, ""},
		{"garbage", []byte{0x01, 0x02, 0x03, 0x04}, fetch.PayloadUnrecognized, ""},
		{"empty", nil, fetch.PayloadUnrecognized, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cls := fetch.Classify(tc.data)
			gt.Equal(t, cls.Kind, tc.kind)
			gt.Equal(t, cls.Ext, tc.ext)
		})
	}
}

func TestClassificationMediaKind(t *testing.T) {
	gt.Equal(t, fetch.Classification{Kind: fetch.PayloadImage, Ext: "jpg"}.MediaKind(), model.KindImage)
	gt.Equal(t, fetch.Classification{Kind: fetch.PayloadVideo, Ext: "mp4"}.MediaKind(), model.KindVideo)
}
