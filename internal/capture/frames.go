package capture

import (
	"context"
	"errors"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoFrameYet is returned by FrameBuffer.Latest before the first frame.
var ErrNoFrameYet = errors.New("no frame captured yet")

// FrameBuffer holds the most recent camera frame as JPEG so that any number
// of stream clients can read it without touching the camera.
type FrameBuffer struct {
	mu      sync.RWMutex
	jpeg    []byte
	seq     uint64
	updated chan struct{}
}

// NewFrameBuffer creates an empty FrameBuffer.
func NewFrameBuffer() *FrameBuffer {
	return &FrameBuffer{updated: make(chan struct{})}
}

// Store encodes frame as JPEG and publishes it.
func (b *FrameBuffer) Store(frame *gocv.Mat) error {
	if frame == nil || frame.Empty() {
		return errors.New("empty frame")
	}
	buf, err := gocv.IMEncode(".jpg", *frame)
	if err != nil {
		return err
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	b.StoreJPEG(data)
	return nil
}

// StoreJPEG publishes an already encoded frame. data must not be modified
// afterwards.
func (b *FrameBuffer) StoreJPEG(data []byte) {
	b.mu.Lock()
	b.jpeg = data
	b.seq++
	close(b.updated)
	b.updated = make(chan struct{})
	b.mu.Unlock()
}

// Latest returns the current frame and its sequence number.
func (b *FrameBuffer) Latest() ([]byte, uint64, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.seq == 0 {
		return nil, 0, ErrNoFrameYet
	}
	return b.jpeg, b.seq, nil
}

// Next blocks until a frame newer than after is available or ctx is done.
func (b *FrameBuffer) Next(ctx context.Context, after uint64) ([]byte, uint64, error) {
	for {
		b.mu.RLock()
		data, seq, wait := b.jpeg, b.seq, b.updated
		b.mu.RUnlock()

		if seq > after {
			return data, seq, nil
		}

		select {
		case <-ctx.Done():
			return nil, seq, ctx.Err()
		case <-wait:
		}
	}
}
