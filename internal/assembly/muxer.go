package assembly

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Muxer concatenates an ordered list of video inputs into a single output
// file.
type Muxer interface {
	Concat(ctx context.Context, inputs []string, output string) error
}

// FFmpegMuxer shells out to ffmpeg using the concat demuxer with an H.264
// and AAC re-encode so clips from different provider jobs mux cleanly.
type FFmpegMuxer struct {
	Binary  string
	Timeout time.Duration
}

// NewFFmpegMuxer constructs a muxer with the given binary name and hard
// timeout.
func NewFFmpegMuxer(binary string, timeout time.Duration) *FFmpegMuxer {
	if binary == "" {
		binary = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &FFmpegMuxer{Binary: binary, Timeout: timeout}
}

// Concat merges the inputs in order into output.
func (m *FFmpegMuxer) Concat(ctx context.Context, inputs []string, output string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("concat: no inputs")
	}

	listFile, err := writeConcatList(inputs)
	if err != nil {
		return err
	}
	defer os.Remove(listFile)

	if dir := filepath.Dir(output); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, m.Binary,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-protocol_whitelist", "file,http,https,tcp,tls",
		"-i", listFile,
		"-c:v", "libx264",
		"-c:a", "aac",
		"-movflags", "+faststart",
		output,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ffmpeg timed out after %s", m.Timeout)
		}
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(string(out), 500))
	}
	return nil
}

func writeConcatList(inputs []string) (string, error) {
	file, err := os.CreateTemp("", "storyforge-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create concat list: %w", err)
	}
	defer file.Close()

	for _, input := range inputs {
		// Single quotes inside paths must be escaped for the concat demuxer.
		escaped := strings.ReplaceAll(input, "'", `'\''`)
		if _, err := fmt.Fprintf(file, "file '%s'\n", escaped); err != nil {
			os.Remove(file.Name())
			return "", fmt.Errorf("write concat list: %w", err)
		}
	}
	return file.Name(), nil
}

func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
