package imageproc

import (
	"bytes"
	"encoding/binary"
)

var (
	pngSignature = []byte("\x89PNG\r\n\x1a\n")
	riffMagic    = []byte("RIFF")
	webpMagic    = []byte("WEBP")
)

// exifBlock returns the bytes exif.Decode should see. JPEG and TIFF streams
// are passed through; PNG and WebP carry a raw TIFF block in a chunk of
// their own, which is extracted. nil means the container has no EXIF.
func exifBlock(data []byte) []byte {
	switch {
	case bytes.HasPrefix(data, pngSignature):
		return pngEXIF(data[len(pngSignature):])
	case len(data) >= 12 && bytes.Equal(data[:4], riffMagic) && bytes.Equal(data[8:12], webpMagic):
		return webpEXIF(data[12:])
	default:
		return data
	}
}

// pngEXIF walks the chunk list: length, type, data, CRC.
func pngEXIF(p []byte) []byte {
	for len(p) >= 12 {
		n := uint64(binary.BigEndian.Uint32(p[:4]))
		if n+12 > uint64(len(p)) {
			return nil
		}
		switch string(p[4:8]) {
		case "eXIf":
			return p[8 : 8+n]
		case "IEND":
			return nil
		}
		p = p[12+n:]
	}
	return nil
}

// webpEXIF walks the RIFF chunk list: fourcc, little-endian size, data padded
// to an even length.
func webpEXIF(p []byte) []byte {
	for len(p) >= 8 {
		n := uint64(binary.LittleEndian.Uint32(p[4:8]))
		if n+8 > uint64(len(p)) {
			return nil
		}
		if string(p[:4]) == "EXIF" {
			return p[8 : 8+n]
		}
		next := 8 + n + n&1
		if next > uint64(len(p)) {
			return nil
		}
		p = p[next:]
	}
	return nil
}
