package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-screenshot-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildRequestAt(t *testing.T) {
	req, err := buildRequest(extractOptions{At: "2:00, 0:30,bogus", Format: "jpg"})
	require.NoError(t, err)

	assert.Equal(t, entity.ModeTimestamps, req.Mode)
	assert.Equal(t, []entity.Timestamp{{Minutes: 2}, {Seconds: 30}}, req.Timestamps)
	assert.Equal(t, entity.NamingDash, req.Naming)
}

func TestBuildRequestEvery(t *testing.T) {
	req, err := buildRequest(extractOptions{Every: 15, Format: "png", Naming: "minute_second"})
	require.NoError(t, err)

	assert.Equal(t, entity.ModeInterval, req.Mode)
	assert.Equal(t, 15, req.IntervalSeconds)
	assert.Equal(t, entity.NamingMinuteSecond, req.Naming)
	assert.Equal(t, "png", req.Format)
}

func TestBuildRequestAtFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stamps.txt")
	require.NoError(t, os.WriteFile(path, []byte("0:10\n\nintro\n1:75\n"), 0o644))

	req, err := buildRequest(extractOptions{AtFile: path})
	require.NoError(t, err)
	assert.Equal(t, []entity.Timestamp{{Seconds: 10}, {Minutes: 1, Seconds: 59}}, req.Timestamps)
}

func TestBuildRequestErrors(t *testing.T) {
	_, err := buildRequest(extractOptions{})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	_, err = buildRequest(extractOptions{At: "nothing here"})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	_, err = buildRequest(extractOptions{At: "0:01", Naming: "weird"})
	assert.ErrorIs(t, err, entity.ErrInvalidRequest)

	_, err = buildRequest(extractOptions{AtFile: filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "screenshots_talk.zip", defaultOutput("/videos/talk.mp4"))
	assert.Equal(t, "screenshots_a.b.zip", defaultOutput("a.b.mkv"))
}

func TestPrintTimestamps(t *testing.T) {
	var buf, errBuf bytes.Buffer
	require.NoError(t, printTimestamps(&buf, &errBuf, "3:05\nnope\n0:09", true))
	assert.Equal(t, "0:09\t9s\n3:05\t185s\n", buf.String())
	assert.Empty(t, errBuf.String())
}

func TestParseCommandReportsNoTimestampsOnStderr(t *testing.T) {
	cmd := newParseCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs([]string{"soon", "1:"})

	require.NoError(t, cmd.Execute())
	assert.Empty(t, out.String())
	assert.Equal(t, "no valid timestamps found (expected m:ss, one per line)\n", errOut.String())
}

func TestSummaryIncludesRateAndFrameCount(t *testing.T) {
	result := &entity.ExtractionResult{
		Screenshots: make([]entity.Screenshot, 3),
		Duration:    103.34,
		FPS:         29,
		TotalFrames: 2997,
	}
	assert.Equal(t, "wrote 3 screenshots to out.zip (video length 103.3s, 29 fps, 2997 frames)", summary(result, "out.zip"))
}

func TestParseCommandReadsArgs(t *testing.T) {
	cmd := newParseCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"1:02", "0:7"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "1:02\t62s\n0:07\t7s\n", out.String())
}

func TestParseCommandReadsStdin(t *testing.T) {
	cmd := newParseCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetIn(bytes.NewBufferString("0:01\n0:02\n"))
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "0:01\t1s\n0:02\t2s\n", out.String())
}

func TestExtractRejectsUnsupportedInput(t *testing.T) {
	cmd := newExtractCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-i", "notes.txt", "--at", "0:01", "--decoder", "mpeg"})

	err := cmd.Execute()
	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestExtractRejectsConflictingModes(t *testing.T) {
	cmd := newExtractCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"-i", "a.mp4", "--at", "0:01", "--every", "5"})

	assert.Error(t, cmd.Execute())
}
