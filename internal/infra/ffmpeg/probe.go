package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

type probeResult struct {
	Width      int
	Height     int
	Rate       float64
	FrameCount int
	Duration   float64
}

type ffprobeOutput struct {
	Streams []struct {
		Width         int    `json:"width"`
		Height        int    `json:"height"`
		AvgFrameRate  string `json:"avg_frame_rate"`
		RFrameRate    string `json:"r_frame_rate"`
		NbFrames      string `json:"nb_frames"`
		NbReadPackets string `json:"nb_read_packets"`
		Tags          struct {
			Rotate string `json:"rotate"`
		} `json:"tags"`
		SideData []struct {
			Rotation float64 `json:"rotation"`
		} `json:"side_data_list"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

func (d *Decoder) probe(ctx context.Context, videoPath string) (*probeResult, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,avg_frame_rate,r_frame_rate,nb_frames:stream_tags=rotate:stream_side_data=rotation:format=duration",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe: %w%s", err, exitDetail(err))
	}

	res, err := parseProbe(output)
	if err != nil {
		return nil, err
	}

	if res.FrameCount <= 0 {
		// container carries no frame count, count packets instead
		if n, err := d.countPackets(ctx, videoPath); err == nil && n > 0 {
			res.FrameCount = n
		} else if res.Duration > 0 {
			res.FrameCount = int(math.Round(res.Duration * res.Rate))
		}
	}
	return res, nil
}

func (d *Decoder) countPackets(ctx context.Context, videoPath string) (int, error) {
	cmd := exec.CommandContext(ctx, d.ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_packets",
		"-show_entries", "stream=nb_read_packets",
		"-of", "json",
		videoPath,
	)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe count packets: %w", err)
	}

	var out ffprobeOutput
	if err := json.Unmarshal(output, &out); err != nil {
		return 0, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return 0, fmt.Errorf("no video stream")
	}
	return strconv.Atoi(out.Streams[0].NbReadPackets)
}

func parseProbe(data []byte) (*probeResult, error) {
	var out ffprobeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("no video stream")
	}

	s := out.Streams[0]
	if s.Width <= 0 || s.Height <= 0 {
		return nil, fmt.Errorf("invalid resolution %dx%d", s.Width, s.Height)
	}

	rate := parseRate(s.AvgFrameRate)
	if rate <= 0 {
		rate = parseRate(s.RFrameRate)
	}
	if rate <= 0 {
		return nil, fmt.Errorf("unknown frame rate")
	}

	res := &probeResult{Width: s.Width, Height: s.Height, Rate: rate}

	// ffmpeg applies the display rotation on decode, so quarter turns arrive transposed
	rotation, _ := strconv.ParseFloat(strings.TrimSpace(s.Tags.Rotate), 64)
	for _, sd := range s.SideData {
		if sd.Rotation != 0 {
			rotation = sd.Rotation
		}
	}
	if quarterTurn(rotation) {
		res.Width, res.Height = res.Height, res.Width
	}
	if n, err := strconv.Atoi(s.NbFrames); err == nil {
		res.FrameCount = n
	}
	if dur, err := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64); err == nil {
		res.Duration = dur
	}
	return res, nil
}

func quarterTurn(degrees float64) bool {
	r := int(math.Round(degrees)) % 180
	if r < 0 {
		r += 180
	}
	return r == 90
}

// parseRate reads ffprobe rationals such as "30000/1001". Invalid input yields 0.
func parseRate(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	dv, err := strconv.ParseFloat(den, 64)
	if err != nil || dv == 0 {
		return 0
	}
	return n / dv
}

func exitDetail(err error) string {
	if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
		return ", output: " + strings.TrimSpace(string(ee.Stderr))
	}
	return ""
}
