package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/formation2video/internal/config"
)

// FrameSource yields the frames of one segment in display order. Next
// returns io.EOF after the last frame. Release hands a written frame back.
type FrameSource interface {
	Next(ctx context.Context) (*image.RGBA, error)
	Release(img *image.RGBA)
}

type VideoEncoder interface {
	EncodeSegment(ctx context.Context, frames FrameSource, videoPath string, params config.SegmentParams, encoderName string, quality int) error
	Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string, params config.Config) error
}

type FFmpegEncoder struct{}

// EncodeSegment pipes raw RGBA frames into ffmpeg at params.FPS.
func (e *FFmpegEncoder) EncodeSegment(
	ctx context.Context,
	frames FrameSource,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) error {
	args := buildSegmentArgs(params.Width, params.Height, videoPath, params, encoderName, quality)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	written, werr := writeFrames(ctx, stdin, frames, params.Width, params.Height)
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg wait error after %d frames: %w\n%s", written, err, out.String())
	}
	if werr != nil {
		return fmt.Errorf("write raw error: %w", werr)
	}
	return nil
}

func buildSegmentArgs(
	inputW, inputH int,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) []string {
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-framerate", fmt.Sprintf("%d", params.FPS),
		"-i", "-",
	}
	if params.Filter != "" {
		args = append(args, "-vf", params.Filter)
	}
	args = append(args,
		"-r", fmt.Sprintf("%d", params.FPS),
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	)
	args = append(args, qualityArgs(encoderName, quality)...)
	return append(args, videoPath)
}

// qualityArgs maps one quality number onto the knob each encoder understands.
func qualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox часто не поддерживает -q:v напрямую. Используем битрейт.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

// writeFrames drains frames into w. Frames of the wrong size are an error:
// ffmpeg would silently misalign every following frame.
func writeFrames(ctx context.Context, w io.Writer, frames FrameSource, width, height int) (int, error) {
	n := 0
	for {
		img, err := frames.Next(ctx)
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		if img.Rect.Dx() != width || img.Rect.Dy() != height {
			frames.Release(img)
			return n, fmt.Errorf("frame %d is %dx%d, want %dx%d", n, img.Rect.Dx(), img.Rect.Dy(), width, height)
		}
		err = writeRawRGBA(w, img)
		frames.Release(img)
		if err != nil {
			return n, err
		}
		n++
	}
}

func writeRawRGBA(w io.Writer, img *image.RGBA) error {
	bounds := img.Bounds()
	// Проверяем, что у кадра стандартный шаг (stride) и нулевое начало
	if img.Stride != bounds.Dx()*4 || bounds.Min != (image.Point{}) {
		packed := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(packed, packed.Bounds(), img, bounds.Min, draw.Src)
		img = packed
	}
	_, err := w.Write(img.Pix)
	return err
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, segmentPaths []string, finalPath string, tmpDir string, params config.Config) error {
	if len(segmentPaths) == 0 {
		return fmt.Errorf("нет сегментов для сборки")
	}

	var args []string
	if useComplexGraph(len(segmentPaths), params) {
		args = buildComplexArgs(segmentPaths, finalPath, params)
	} else {
		concatFilePath := filepath.Join(tmpDir, "inputs.txt")
		if err := os.WriteFile(concatFilePath, []byte(concatList(segmentPaths)), 0o644); err != nil {
			return err
		}
		args = []string{"-y", "-f", "concat", "-safe", "0", "-i", concatFilePath, "-c", "copy", finalPath}
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat error: %w, output: %s", err, string(out))
	}
	return nil
}

// Используем сложный фильтр (filter_complex), если:
// 1. Нужен переход (xfade)
// 2. Есть аудио для наложения на видеоряд
func useComplexGraph(segments int, params config.Config) bool {
	return hasTransition(segments, params) || params.AudioPath != "" || params.BackgroundAudio != ""
}

func hasTransition(segments int, params config.Config) bool {
	return params.TransitionType != "" && params.TransitionType != "none" && segments > 1
}

func concatList(segmentPaths []string) string {
	var b strings.Builder
	for _, p := range segmentPaths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			absPath = p
		}
		fmt.Fprintf(&b, "file '%s'\n", strings.ReplaceAll(absPath, "'", `'\''`))
	}
	return b.String()
}

func buildComplexArgs(segmentPaths []string, finalPath string, params config.Config) []string {
	args := []string{"-y"}
	for _, p := range segmentPaths {
		args = append(args, "-i", p)
	}

	var graph []string
	lastOut := "[0:v]"

	// 1. Видео фильтры (xfade со смещением по длительностям клипов)
	if hasTransition(len(segmentPaths), params) {
		offset := 0.0
		for i := 1; i < len(segmentPaths); i++ {
			offset += clipDuration(params, i-1, len(segmentPaths)) - params.FadeDuration
			outName := fmt.Sprintf("[v%d]", i)
			graph = append(graph, fmt.Sprintf("%s[%d:v]xfade=transition=%s:duration=%f:offset=%f%s",
				lastOut, i, params.TransitionType, params.FadeDuration, offset, outName))
			lastOut = outName
		}
	} else if len(segmentPaths) > 1 {
		inputs := ""
		for i := range segmentPaths {
			inputs += fmt.Sprintf("[%d:v]", i)
		}
		graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vconcat]", inputs, len(segmentPaths)))
		lastOut = "[vconcat]"
	}

	// 2. Аудио: основная дорожка и/или фоновая подложка по кругу
	audioOut := ""
	next := len(segmentPaths)
	mainIndex, bgIndex := -1, -1
	if params.AudioPath != "" {
		mainIndex = next
		next++
		args = append(args, "-i", params.AudioPath)
	}
	if params.BackgroundAudio != "" {
		bgIndex = next
		args = append(args, "-stream_loop", "-1", "-i", params.BackgroundAudio)
	}

	switch {
	case mainIndex >= 0 && bgIndex >= 0:
		graph = append(graph, fmt.Sprintf("[%d:a]%s[bg_a];[%d:a]volume=1.0[main_a];[main_a][bg_a]amix=inputs=2:duration=first:dropout_transition=3[aout]",
			bgIndex, backgroundVolume(params), mainIndex))
		audioOut = "[aout]"
	case mainIndex >= 0:
		audioOut = fmt.Sprintf("%d:a", mainIndex)
	case bgIndex >= 0:
		graph = append(graph, fmt.Sprintf("[%d:a]%s[aout]", bgIndex, backgroundVolume(params)))
		audioOut = "[aout]"
	}

	if len(graph) > 0 {
		args = append(args, "-filter_complex", strings.Join(graph, ";"))
	}

	// Настройка маппинга
	args = append(args, "-map", lastOut)
	if audioOut != "" {
		args = append(args, "-map", audioOut, "-shortest")
	}

	args = append(args, "-c:v", params.VideoEncoder, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(params.VideoEncoder, params.Quality)...)
	return append(args, finalPath)
}

func clipDuration(params config.Config, i, segments int) float64 {
	if i < len(params.ClipDurations) {
		return params.ClipDurations[i]
	}
	if params.TotalDuration > 0 {
		return params.TotalDuration / float64(segments)
	}
	return 0
}

// backgroundVolume fades the background track in and out around the video.
func backgroundVolume(params config.Config) string {
	fadeIn, fadeOut := 5.0, 5.0
	total := params.TotalDuration
	if total < fadeIn+fadeOut {
		fadeIn = total * 0.1
		fadeOut = total * 0.1
	}
	if fadeIn <= 0 {
		return fmt.Sprintf("volume=%f", params.BackgroundVolume)
	}
	return fmt.Sprintf("volume='%f*(if(lte(t,%f),0.1+0.9*(t/%f),if(gte(t,%f),(%f-t)/%f,1.0)))':eval=frame",
		params.BackgroundVolume, fadeIn, fadeIn, total-fadeOut, total, fadeOut)
}
