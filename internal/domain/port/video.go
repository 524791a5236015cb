package port

// VideoMeta is the source metadata captured when a video is opened.
// FramesTotal and FPS may be 0 when the container does not report them.
type VideoMeta struct {
	FramesTotal     int
	FPS             float64
	DurationSeconds float64
}

// VideoSession is a single open decode of one video. It is not restartable;
// Close must be called on every exit path to release the decoder.
type VideoSession interface {
	Meta() VideoMeta
	// ReadFrame decodes the next frame in order. ok is false at end of
	// stream. The caller owns the returned frame.
	ReadFrame() (f Frame, ok bool, err error)
	Close() error
}

type VideoDecoder interface {
	Open(path string) (VideoSession, error)
}
