package stream

import (
	"bytes"

	"github.com/dhowden/tag"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/flac"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/vorbis"
	"github.com/gopxl/beep/v2/wav"
)

// Container formats the engine can decode.
const (
	formatMP3    = "mp3"
	formatWAV    = "wav"
	formatFLAC   = "flac"
	formatVorbis = "vorbis"
)

// sniffFormat names the container of data. RIFF/WAVE is checked directly,
// tag.Identify recognises FLAC and Ogg; anything else is tried as MP3,
// which has no reliable magic number.
func sniffFormat(data []byte) string {
	if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
		return formatWAV
	}
	_, fileType, err := tag.Identify(bytes.NewReader(data))
	if err != nil {
		return formatMP3
	}
	switch fileType {
	case tag.FLAC:
		return formatFLAC
	case tag.OGG:
		return formatVorbis
	default:
		return formatMP3
	}
}

func decode(format string, data []byte) (beep.StreamSeekCloser, beep.Format, error) {
	r := nopCloser{bytes.NewReader(data)}
	switch format {
	case formatWAV:
		return wav.Decode(r)
	case formatFLAC:
		return flac.Decode(r)
	case formatVorbis:
		return vorbis.Decode(r)
	default:
		return mp3.Decode(r)
	}
}
