package system

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/ivlev/formation2video/internal/style"
)

// Расширения входных файлов
var (
	PayloadExtensions = []string{".json", ".json.zst"}
	AudioExtensions   = []string{".mp3", ".wav", ".m4a", ".ogg", ".aac", ".flac"}
)

func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("%s Не удалось получить лимит файлов: %v", style.WarningPrefix, err)
		return
	}

	// Каждый сегмент держит открытыми pipe ffmpeg и временный файл
	want := uint64(2048)
	if want > rLimit.Max {
		want = rLimit.Max
	}
	if rLimit.Cur >= want {
		return
	}
	rLimit.Cur = want

	if err := syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit); err != nil {
		log.Printf("%s Не удалось установить лимит файлов: %v", style.WarningPrefix, err)
		return
	}
	fmt.Printf("%s Системный лимит открытых файлов увеличен до %d\n", style.InfoPrefix, rLimit.Cur)
}

// HasExtension reports whether name ends with one of exts, ignoring case.
func HasExtension(name string, exts []string) bool {
	lower := strings.ToLower(name)
	for _, ext := range exts {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// FindLatestFile returns the most recently modified regular file in dir
// whose name ends with one of exts.
func FindLatestFile(dir string, exts []string) (string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}

	var latestFile string
	var latestTime time.Time
	for _, f := range files {
		if f.IsDir() || !HasExtension(f.Name(), exts) {
			continue
		}
		info, err := f.Info()
		if err != nil {
			continue
		}
		if latestFile == "" || info.ModTime().After(latestTime) {
			latestTime = info.ModTime()
			latestFile = filepath.Join(dir, f.Name())
		}
	}

	if latestFile == "" {
		return "", fmt.Errorf("в папке %s не найдено файлов %s", dir, strings.Join(exts, ", "))
	}
	return latestFile, nil
}

// FindLatestPayload returns the newest export-json file in dir.
func FindLatestPayload(dir string) (string, error) {
	return FindLatestFile(dir, PayloadExtensions)
}

func FindLatestAudio(dir string) (string, error) {
	return FindLatestFile(dir, AudioExtensions)
}

// GetAudioDuration asks ffprobe for the length of an audio file in seconds.
func GetAudioDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, "ffprobe", "-v", "error", "-show_entries", "format=duration", "-of", "default=noprint_wrappers=1:nokey=1", path)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseDuration(string(out))
}

func parseDuration(out string) (float64, error) {
	d, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", strings.TrimSpace(out), err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("non-positive duration %g", d)
	}
	return d, nil
}

var (
	ffmpegOnce     sync.Once
	ffmpegEncoders string
	ffmpegFilters  string
)

// probeFFmpeg runs the capability listings once per process.
func probeFFmpeg() {
	ffmpegOnce.Do(func() {
		if out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").CombinedOutput(); err == nil {
			ffmpegEncoders = string(out)
		}
		if out, err := exec.Command("ffmpeg", "-hide_banner", "-filters").CombinedOutput(); err == nil {
			ffmpegFilters = string(out)
		}
	})
}

func GetBestH264Encoder() (string, string) {
	// Приоритеты:
	// 1. MacOS (VideoToolbox)
	// 2. NVIDIA (NVENC)
	// 3. Software (libx264)
	probeFFmpeg()
	return pickEncoder(ffmpegEncoders)
}

func pickEncoder(listing string) (string, string) {
	encoders := []struct {
		name string
		args string
	}{
		{"h264_videotoolbox", ""},
		{"h264_nvenc", ""},
	}
	for _, enc := range encoders {
		if strings.Contains(listing, enc.name) {
			return enc.name, enc.args
		}
	}
	return "libx264", ""
}

// CheckFilterSupport reports whether the installed ffmpeg has filter name.
func CheckFilterSupport(name string) bool {
	probeFFmpeg()
	return hasFilter(ffmpegFilters, name)
}

func hasFilter(listing, name string) bool {
	for _, line := range strings.Split(listing, "\n") {
		fields := strings.Fields(line)
		// " T.C drawtext          V->V       Draw text on top of video frames"
		if len(fields) >= 2 && fields[1] == name {
			return true
		}
	}
	return false
}
