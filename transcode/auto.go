package transcode

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-tempo/logging"
)

// AutoDecoder reads PCM WAV natively and hands every other format, or WAV
// encodings the native reader rejects, to ffmpeg
type AutoDecoder struct {
	wav    *WAVDecoder
	ffmpeg *Decoder
}

// NewAutoDecoder creates a decoder that picks a backend by file extension
func NewAutoDecoder(config *DecoderConfig) *AutoDecoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &AutoDecoder{
		wav:    NewWAVDecoder(config.MaxDuration),
		ffmpeg: NewDecoder(config),
	}
}

// DecodeFile decodes filename with the backend suited to its extension
func (a *AutoDecoder) DecodeFile(filename string) (*AudioData, error) {
	if !isWAV(filename) {
		return a.ffmpeg.DecodeFile(filename)
	}

	data, err := a.wav.DecodeFile(filename)
	if errors.Is(err, ErrUnsupportedWAV) {
		logging.Debug("Falling back to ffmpeg for wav file", logging.Fields{
			"component": "auto_decoder",
			"filename":  filename,
			"reason":    err.Error(),
		})
		return a.ffmpeg.DecodeFile(filename)
	}
	return data, err
}

func isWAV(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".wav", ".wave":
		return true
	}
	return false
}
