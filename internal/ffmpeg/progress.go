package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"strconv"
	"strings"
	"time"

	"talkvid/internal/logging"
)

// Progress is one block of ffmpeg's -progress output.
type Progress struct {
	// OutTime is the position reached in the output.
	OutTime time.Duration
	Speed   string
	// Phase is "continue" while encoding and "end" on the last block.
	Phase string
}

// RunWithProgress runs ffmpeg like Run and logs its progress in 10% steps.
// total is the expected output length in seconds; when it is unknown only
// the start and end are logged.
func (r *Runner) RunWithProgress(ctx context.Context, total float64, args ...string) error {
	full := append(append([]string(nil), baseArgs...), "-progress", "pipe:1", "-nostats")
	full = append(full, args...)
	logger := logging.WithContext(ctx, r.logger)
	logger.Debug("ffmpeg invocation", logging.String("args", strings.Join(full, " ")))

	var stderr bytes.Buffer
	cmd := r.command(ctx, full)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return toolError("ffmpeg", full, "", err)
	}
	started := time.Now()
	if err := cmd.Start(); err != nil {
		return toolError("ffmpeg", full, "", err)
	}

	sampler := logging.NewProgressSampler(10)
	ParseProgress(stdout, func(p Progress) {
		percent := -1.0
		if total > 0 {
			percent = min(100, p.OutTime.Seconds()/total*100)
		}
		if !sampler.ShouldLog(percent, p.Phase) {
			return
		}
		logger.Info("render progress",
			logging.Float64("percent", percent),
			logging.Duration("out_time", p.OutTime),
			logging.String("speed", p.Speed),
		)
	})
	// Drain anything left so ffmpeg never blocks on a full pipe.
	_, _ = io.Copy(io.Discard, stdout)

	if err := cmd.Wait(); err != nil {
		return toolError("ffmpeg", full, stderr.String(), err)
	}
	logger.Debug("ffmpeg finished", logging.Duration("elapsed", time.Since(started)))
	return nil
}

// ParseProgress reads key=value lines as written by -progress and calls fn
// once per block. Blocks end with a progress= line.
func ParseProgress(r io.Reader, fn func(Progress)) {
	var cur Progress
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		switch key {
		case "out_time_us", "out_time_ms":
			// Both keys carry microseconds.
			if us, err := strconv.ParseInt(value, 10, 64); err == nil && us >= 0 {
				cur.OutTime = time.Duration(us) * time.Microsecond
			}
		case "speed":
			cur.Speed = strings.TrimSpace(value)
		case "progress":
			cur.Phase = value
			fn(cur)
		}
	}
}
