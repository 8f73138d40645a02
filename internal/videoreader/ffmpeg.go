package videoreader

import (
	"bufio"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// ffmpegSource decodes a video file to a stream of raw RGB24 frames by
// piping ffmpeg's stdout, the mirror image of the teacher's
// encoder.MakeSvtCmd, which streams raw frames INTO an encoder's stdin.
// Here frames stream OUT of a decoder's stdout.
type ffmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader

	width, height int
	fps           float64
	frameSize     int
	frameIdx      int
}

const ffmpegBinary = "ffmpeg"
const ffprobeBinary = "ffprobe"

// OpenFFmpeg opens path with ffprobe (to learn dimensions/fps) then starts
// an ffmpeg subprocess streaming raw rgb24 frames on stdout. It satisfies
// OpenFunc.
func OpenFFmpeg(path string) (VideoSource, error) {
	width, height, fps, err := probeVideo(path)
	if err != nil {
		return nil, fmt.Errorf("videoreader: probe %s: %w", path, err)
	}

	cmd := exec.Command(ffmpegBinary,
		"-i", path,
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"-loglevel", "error",
		"-",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("videoreader: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("videoreader: start ffmpeg: %w", err)
	}

	return &ffmpegSource{
		cmd:       cmd,
		stdout:    stdout,
		reader:    bufio.NewReaderSize(stdout, 1<<20),
		width:     width,
		height:    height,
		fps:       fps,
		frameSize: width * height * 3,
	}, nil
}

func (s *ffmpegSource) Next() (DecodedFrame, bool, error) {
	buf := make([]byte, s.frameSize)
	_, err := io.ReadFull(s.reader, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return DecodedFrame{}, false, nil
	}
	if err != nil {
		return DecodedFrame{}, false, fmt.Errorf("videoreader: read frame: %w", err)
	}

	idx := s.frameIdx
	s.frameIdx++

	tsMS := 0.0
	if s.fps > 0 {
		tsMS = float64(idx) * 1000.0 / s.fps
	}

	return DecodedFrame{
		Index:  idx,
		Width:  s.width,
		Height: s.height,
		Data:   buf,
		FPS:    s.fps,
		TSMS:   tsMS,
	}, true, nil
}

func (s *ffmpegSource) Close() error {
	_ = s.stdout.Close()
	return s.cmd.Wait()
}

// ProbeVideo shells out to ffprobe for a file's width, height, and frame
// rate without decoding it. Exported so callers can size resolution-
// dependent resources (internal/config.CapGPUWorkers) before any worker
// pool is started.
func ProbeVideo(path string) (width, height int, fps float64, err error) {
	return probeVideo(path)
}

// probeVideo shells out to ffprobe for width, height, and frame rate.
func probeVideo(path string) (width, height int, fps float64, err error) {
	cmd := exec.Command(ffprobeBinary,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-of", "csv=p=0",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: %w", err)
	}

	fields := strings.Split(strings.TrimSpace(string(out)), ",")
	if len(fields) < 3 {
		return 0, 0, 0, fmt.Errorf("ffprobe: unexpected output %q", out)
	}

	width, err = strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: parse width: %w", err)
	}
	height, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: parse height: %w", err)
	}
	fps, err = parseFrameRate(fields[2])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("ffprobe: parse frame rate: %w", err)
	}
	return width, height, fps, nil
}

func parseFrameRate(s string) (float64, error) {
	parts := strings.SplitN(s, "/", 2)
	num, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return 0, err
	}
	if len(parts) == 1 {
		return num, nil
	}
	den, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || den == 0 {
		return num, nil
	}
	return num / den, nil
}
