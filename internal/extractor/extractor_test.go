package extractor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valpere/wordweaver/internal/llm"
)

type visionModel struct {
	reply string
	err   error
	req   llm.Request
}

func (m *visionModel) Name() string                          { return "vision" }
func (m *visionModel) IsAvailable(ctx context.Context) error { return nil }
func (m *visionModel) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &llm.Response{Text: m.reply}, nil
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil))
	return buf.Bytes()
}

func TestVisionExtractor(t *testing.T) {
	m := &visionModel{reply: "<think>reading</think>\nHere is the transcribed text: Today I went to teh park."}
	e := NewVisionExtractor(m, "llava")

	text, err := e.Extract(context.Background(), []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, "Today I went to teh park.", text)
	assert.Equal(t, "llava", m.req.Model)
	require.Len(t, m.req.Images, 1)
	assert.Equal(t, []byte("img"), m.req.Images[0])
	assert.False(t, m.req.JSON)
}

func TestVisionExtractor_Errors(t *testing.T) {
	_, err := NewVisionExtractor(&visionModel{reply: "  "}, "m").Extract(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoText)

	boom := errors.New("down")
	_, err = NewVisionExtractor(&visionModel{err: boom}, "m").Extract(context.Background(), nil)
	assert.ErrorIs(t, err, boom)
}

func TestNew(t *testing.T) {
	e, err := New("Vision", &visionModel{}, "m", nil)
	require.NoError(t, err)
	assert.Equal(t, EngineVision, e.Name())

	e, err = New("tesseract", nil, "", []string{"eng"})
	require.NoError(t, err)
	assert.Equal(t, EngineTesseract, e.Name())

	_, err = New("vision", nil, "m", nil)
	assert.Error(t, err)

	_, err = New("abbyy", nil, "", nil)
	assert.Error(t, err)
}

func TestDetectFormat(t *testing.T) {
	f, err := DetectFormat(encodePNG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "png", f)

	f, err = DetectFormat(encodeJPEG(t, 4, 4))
	require.NoError(t, err)
	assert.Equal(t, "jpeg", f)

	_, err = DetectFormat([]byte("GIF89a......"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestAllowedExtension(t *testing.T) {
	for _, ext := range []string{".png", ".jpg", ".JPEG"} {
		assert.True(t, AllowedExtension(ext), ext)
	}
	for _, ext := range []string{".gif", ".pdf", ""} {
		assert.False(t, AllowedExtension(ext), ext)
	}
}

func TestPreprocess(t *testing.T) {
	out, err := Preprocess(encodePNG(t, 300, 100), 150)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 150, img.Bounds().Dx())
	assert.Equal(t, 50, img.Bounds().Dy())

	r, g, b, _ := img.At(10, 25).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestPreprocess_KeepsSmallImages(t *testing.T) {
	out, err := Preprocess(encodeJPEG(t, 40, 20), 0)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())
}

func TestPreprocess_RejectsGarbage(t *testing.T) {
	_, err := Preprocess([]byte("not an image"), 100)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Preprocess(append([]byte("\x89PNG\r\n\x1a\n"), []byte("broken")...), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode png image")
}
