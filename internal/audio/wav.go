package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// HeaderSize is the length of a canonical PCM WAV header
const HeaderSize = 44

// streamingDataSize marks the data chunk as open-ended; a take's length is
// not known when its first chunk is emitted
const streamingDataSize = uint32(0xFFFFFFFF - 36)

// ErrInvalidHeader is returned when bytes do not start with a PCM WAV header
var ErrInvalidHeader = errors.New("invalid wav header")

// Header is the decoded form of a canonical 44-byte PCM WAV header
type Header struct {
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataSize      uint32
}

// StreamHeader builds the header placed at the start of every take
func StreamHeader(format Format) []byte {
	return encodeHeader(format, streamingDataSize)
}

// EncodeWAV wraps complete PCM16 data in a header with exact sizes
func EncodeWAV(format Format, pcm []byte) []byte {
	out := make([]byte, 0, HeaderSize+len(pcm))
	out = append(out, encodeHeader(format, uint32(len(pcm)))...)
	return append(out, pcm...)
}

func encodeHeader(format Format, dataSize uint32) []byte {
	bitsPerSample := uint16(BytesPerSample * 8)
	byteRate := uint32(format.SampleRate * format.Channels * BytesPerSample)
	blockAlign := uint16(format.Channels * BytesPerSample)

	header := make([]byte, HeaderSize)

	// RIFF chunk descriptor
	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], 36+dataSize)
	copy(header[8:12], "WAVE")

	// "fmt " sub-chunk
	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], 16)
	binary.LittleEndian.PutUint16(header[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:24], uint16(format.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(format.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], byteRate)
	binary.LittleEndian.PutUint16(header[32:34], blockAlign)
	binary.LittleEndian.PutUint16(header[34:36], bitsPerSample)

	// "data" sub-chunk
	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	return header
}

// ParseHeader decodes the header at the start of data
func ParseHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrInvalidHeader, HeaderSize, len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: missing RIFF/WAVE marker", ErrInvalidHeader)
	}
	if string(data[12:16]) != "fmt " || string(data[36:40]) != "data" {
		return nil, fmt.Errorf("%w: unexpected sub-chunk layout", ErrInvalidHeader)
	}
	if audioFormat := binary.LittleEndian.Uint16(data[20:22]); audioFormat != 1 {
		return nil, fmt.Errorf("%w: audio format %d is not PCM", ErrInvalidHeader, audioFormat)
	}

	return &Header{
		NumChannels:   binary.LittleEndian.Uint16(data[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(data[24:28]),
		ByteRate:      binary.LittleEndian.Uint32(data[28:32]),
		BlockAlign:    binary.LittleEndian.Uint16(data[32:34]),
		BitsPerSample: binary.LittleEndian.Uint16(data[34:36]),
		DataSize:      binary.LittleEndian.Uint32(data[40:44]),
	}, nil
}

// Streaming reports whether the header was written before the data size was known
func (h *Header) Streaming() bool {
	return h.DataSize == streamingDataSize
}
