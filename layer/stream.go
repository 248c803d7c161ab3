package layer

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// featureStream walks the size-prefixed features of an unindexed layer in
// file order. next and skip return io.EOF after the last feature.
type featureStream interface {
	next() ([]byte, error)
	skip() error
	Close() error
}

// openStream positions a stream on the first feature. Layers held in memory
// are walked in place, layers on disk are read through a buffered file so
// only one feature is resident at a time.
func (r *Reader) openStream() (featureStream, error) {
	if r.data != nil {
		offset, err := featuresOffset(r.data)
		if err != nil {
			return nil, err
		}
		return &sliceStream{data: r.data, offset: offset}, nil
	}
	return openFileStream(r.path)
}

// featuresOffset returns where the features of an unindexed layer start.
func featuresOffset(data []byte) (int, error) {
	if len(data) < magicSize+4 {
		return 0, fmt.Errorf("%w: %d bytes", ErrInvalidData, len(data))
	}
	headerSize := int(binary.LittleEndian.Uint32(data[magicSize:]))
	offset := magicSize + 4 + headerSize
	if offset > len(data) {
		return 0, fmt.Errorf("%w: header overruns file", ErrInvalidData)
	}
	return offset, nil
}

type sliceStream struct {
	data   []byte
	offset int
}

func (s *sliceStream) frame() (start, size int, err error) {
	if s.offset >= len(s.data) {
		return 0, 0, io.EOF
	}
	if s.offset+4 > len(s.data) {
		return 0, 0, fmt.Errorf("%w: truncated feature at offset %d", ErrInvalidData, s.offset)
	}
	size = int(binary.LittleEndian.Uint32(s.data[s.offset:]))
	start = s.offset + 4
	if size < 4 || start+size > len(s.data) {
		return 0, 0, fmt.Errorf("%w: feature at offset %d overruns file", ErrInvalidData, s.offset)
	}
	s.offset = start + size
	return start, size, nil
}

func (s *sliceStream) next() ([]byte, error) {
	start, size, err := s.frame()
	if err != nil {
		return nil, err
	}
	return s.data[start : start+size], nil
}

func (s *sliceStream) skip() error {
	_, _, err := s.frame()
	return err
}

func (s *sliceStream) Close() error {
	s.data = nil
	return nil
}

type fileStream struct {
	f      *os.File
	r      *bufio.Reader
	offset int64
	size   int64
	buf    []byte
}

func openFileStream(path string) (*fileStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	s := &fileStream{f: f, r: bufio.NewReaderSize(f, 64*1024), size: info.Size()}

	var prefix [magicSize + 4]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidData, s.size)
	}
	headerSize := int64(binary.LittleEndian.Uint32(prefix[magicSize:]))
	s.offset = int64(len(prefix)) + headerSize
	if s.offset > s.size {
		_ = f.Close()
		return nil, fmt.Errorf("%w: header overruns file", ErrInvalidData)
	}
	if _, err := s.r.Discard(int(headerSize)); err != nil {
		_ = f.Close()
		return nil, err
	}

	return s, nil
}

func (s *fileStream) frame() (int, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(s.r, prefix[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, fmt.Errorf("%w: truncated feature at offset %d", ErrInvalidData, s.offset)
		}
		return 0, err
	}
	size := int64(binary.LittleEndian.Uint32(prefix[:]))
	if size < 4 || s.offset+4+size > s.size {
		return 0, fmt.Errorf("%w: feature at offset %d overruns file", ErrInvalidData, s.offset)
	}
	s.offset += 4 + size
	return int(size), nil
}

// next returns the next feature. The slice is reused by the following call.
func (s *fileStream) next() ([]byte, error) {
	size, err := s.frame()
	if err != nil {
		return nil, err
	}
	if cap(s.buf) < size {
		s.buf = make([]byte, size)
	}
	s.buf = s.buf[:size]
	if _, err := io.ReadFull(s.r, s.buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return s.buf, nil
}

func (s *fileStream) skip() error {
	size, err := s.frame()
	if err != nil {
		return err
	}
	if _, err := s.r.Discard(size); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return nil
}

func (s *fileStream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// countFeatures walks the feature section. Unindexed layers written by a
// streaming writer record a features count of 0, meaning unknown.
func (r *Reader) countFeatures() (uint64, error) {
	stream, err := r.openStream()
	if err != nil {
		return 0, err
	}
	defer stream.Close()

	var n uint64
	for {
		err := stream.skip()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return 0, err
		}
		n++
	}
}
