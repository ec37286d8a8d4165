package engine

import (
	"context"
	"image"
	"io"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/ivlev/formation2video/internal/director"
	"github.com/ivlev/formation2video/internal/renderer"
	"github.com/ivlev/formation2video/internal/system"
)

// FrameCount is the number of video frames of a clip lasting duration seconds.
func FrameCount(duration float64, fps int) int {
	return max(0, int(math.Round(duration*float64(fps))))
}

// clipFrames renders the frames of one clip on a bounded worker pool and
// hands them out strictly in order. At most twice the worker count of frames
// are rendered but not yet released by the encoder.
type clipFrames struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group
	slots  []chan *image.RGBA
	tokens chan struct{}
	pool   *system.ImagePool
	next   int

	produced chan struct{}
}

func newClipFrames(
	ctx context.Context,
	plan plannedClip,
	fps, width, height, workers int,
	pool *system.ImagePool,
	newRasterizer func() *renderer.Rasterizer,
) *clipFrames {
	n := FrameCount(plan.Clip.Duration, fps)
	workers = max(1, workers)

	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	cf := &clipFrames{
		ctx:    gctx,
		cancel: cancel,
		group:  g,
		slots:  make([]chan *image.RGBA, n),
		tokens: make(chan struct{}, 2*workers),
		pool:   pool,

		produced: make(chan struct{}),
	}
	for k := range cf.slots {
		cf.slots[k] = make(chan *image.RGBA, 1)
	}

	// Каждому воркеру свой растеризатор: vector.Rasterizer не потокобезопасен
	rasterizers := make(chan *renderer.Rasterizer, workers)
	for i := 0; i < workers; i++ {
		rasterizers <- newRasterizer()
	}

	go func() {
		defer close(cf.produced)
		for k := 0; k < n; k++ {
			select {
			case cf.tokens <- struct{}{}:
			case <-gctx.Done():
				return
			}
			g.Go(func() error {
				r := <-rasterizers
				defer func() { rasterizers <- r }()

				seconds := float64(k) / float64(fps)
				frame := plan.Table.FrameAt(director.CountAt(plan.Clip.Keyframes, seconds))
				img := pool.Get(width, height)
				r.Draw(img, frame)
				cf.slots[k] <- img
				return nil
			})
		}
	}()
	return cf
}

func (cf *clipFrames) Next(ctx context.Context) (*image.RGBA, error) {
	if cf.next >= len(cf.slots) {
		return nil, io.EOF
	}
	select {
	case img := <-cf.slots[cf.next]:
		cf.next++
		return img, nil
	case <-cf.ctx.Done():
		return nil, cf.ctx.Err()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (cf *clipFrames) Release(img *image.RGBA) {
	cf.pool.Put(img)
	select {
	case <-cf.tokens:
	default:
	}
}

// Close stops rendering, waits for in-flight workers and returns every
// frame the encoder never took to the pool.
func (cf *clipFrames) Close() {
	cf.cancel()
	<-cf.produced
	_ = cf.group.Wait()
	for _, slot := range cf.slots {
		select {
		case img := <-slot:
			cf.pool.Put(img)
		default:
		}
	}
}
