package firmware

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// ESP32 image format constants
const (
	ESP32ImageMagic     = 0xE9
	ESP32HeaderSize     = 24 // Main image header size
	ESP32SegmentHdrSize = 8  // Segment header size (load_addr + data_len)
	maxSegments         = 16
)

// ESP32ImageHeader represents the main header of an ESP32 app image.
type ESP32ImageHeader struct {
	Magic        uint8
	SegmentCount uint8
	SPIMode      uint8
	SPISpeed     uint8 // Combined with size in some versions
	EntryAddr    uint32
	WPPin        uint8
	SPIPinDrv    [3]uint8
	ChipID       uint16
	MinChipRev   uint8
	MinRevFull   uint16
	MaxRevFull   uint16
	Reserved     [4]uint8
	HashAppended uint8
}

// ESP32Segment is a memory segment header. Data is skipped, not loaded.
type ESP32Segment struct {
	LoadAddr   uint32
	DataLen    uint32
	FileOffset int64 // Where segment data starts in the file
}

// ESP32Image is the parsed layout of an app image.
type ESP32Image struct {
	Header   ESP32ImageHeader
	Segments []ESP32Segment
	Size     int64
}

// ParseESP32Image parses an ESP32 app image from a file.
func ParseESP32Image(path string) (*ESP32Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ParseESP32ImageReader(f)
}

// ParseESP32ImageReader walks the header and segment table of an image and
// checks that every segment fits in the file.
func ParseESP32ImageReader(r io.ReadSeeker) (*ESP32Image, error) {
	img := &ESP32Image{}

	if err := binary.Read(r, binary.LittleEndian, &img.Header); err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}

	if img.Header.Magic != ESP32ImageMagic {
		return nil, fmt.Errorf("invalid ESP32 image magic: 0x%02x (expected 0x%02x)",
			img.Header.Magic, ESP32ImageMagic)
	}
	if img.Header.SegmentCount == 0 || img.Header.SegmentCount > maxSegments {
		return nil, fmt.Errorf("invalid segment count %d", img.Header.SegmentCount)
	}

	end, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to get size: %w", err)
	}
	img.Size = end
	if _, err := r.Seek(ESP32HeaderSize, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek: %w", err)
	}

	for i := 0; i < int(img.Header.SegmentCount); i++ {
		var seg ESP32Segment
		if err := binary.Read(r, binary.LittleEndian, &seg.LoadAddr); err != nil {
			return nil, fmt.Errorf("failed to read segment %d load addr: %w", i, err)
		}
		if err := binary.Read(r, binary.LittleEndian, &seg.DataLen); err != nil {
			return nil, fmt.Errorf("failed to read segment %d data len: %w", i, err)
		}

		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("failed to get position: %w", err)
		}
		seg.FileOffset = pos
		if pos+int64(seg.DataLen) > end {
			return nil, fmt.Errorf("segment %d runs past end of image", i)
		}
		if _, err := r.Seek(int64(seg.DataLen), io.SeekCurrent); err != nil {
			return nil, fmt.Errorf("failed to skip segment %d: %w", i, err)
		}

		img.Segments = append(img.Segments, seg)
	}

	return img, nil
}
