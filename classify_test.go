package s3freeze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifier_Defaults(t *testing.T) {
	c := NewClassifier(DefaultBinaryExtensions, DefaultMediaExtensions)

	tests := []struct {
		name string
		want AssetKind
	}{
		{"archive.db", AssetBinary},
		{"data/ARCHIVE.DB", AssetBinary},
		{"videos/intro.mp4", AssetBinary},
		{"bundle.tar.gz", AssetBinary},
		{"img/logo.png", AssetMedia},
		{"img/Logo.PNG", AssetMedia},
		{"css/site.css", AssetMedia},
		{"js/app.js", AssetMedia},
		{"fonts/inter.woff2", AssetMedia},
		{"robots.txt", AssetText},
		{"notes.md", AssetText},
		{"LICENSE", AssetText},
		{"weird.unknownext", AssetText},
		{".hidden", AssetText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.name))
		})
	}
}

func TestClassifier_ConfiguredSets(t *testing.T) {
	// a variant that keeps audio/video as media and quarantines nothing else
	c := NewClassifier([]string{"db", " .EXE "}, []string{".mp4", "ogg"})

	assert.Equal(t, AssetBinary, c.Classify("x.db"))
	assert.Equal(t, AssetBinary, c.Classify("setup.exe"))
	assert.Equal(t, AssetMedia, c.Classify("clip.mp4"))
	assert.Equal(t, AssetMedia, c.Classify("sound.OGG"))
	assert.Equal(t, AssetText, c.Classify("archive.zip"))
}

func TestClassifier_BinaryWinsOverMedia(t *testing.T) {
	c := NewClassifier([]string{".mp4"}, []string{".mp4"})
	assert.Equal(t, AssetBinary, c.Classify("clip.mp4"))
}

func TestAssetKind_String(t *testing.T) {
	assert.Equal(t, "text", AssetText.String())
	assert.Equal(t, "media", AssetMedia.String())
	assert.Equal(t, "binary", AssetBinary.String())
	assert.Equal(t, "unknown", AssetKind(42).String())
}
