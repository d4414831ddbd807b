package subtitle

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SubRip format
type SRTWriter struct{}

var _ Writer = (*SRTWriter)(nil)

func NewSRTWriter() *SRTWriter {
	return &SRTWriter{}
}

// renders cues as SRT blocks in slice order
func (w *SRTWriter) Encode(out io.Writer, cues []Cue) error {
	bw := bufio.NewWriter(out)
	for _, cue := range cues {
		// index
		fmt.Fprintf(bw, "%d\n", cue.Index)

		// timestamps: 00:00:00,000 --> 00:00:00,000
		fmt.Fprintf(bw, "%s --> %s\n", cue.Start, cue.End)

		// text
		bw.WriteString(cue.Text)
		bw.WriteString("\n\n")
	}
	return bw.Flush()
}

// writes the cues to an SRT file, replacing it atomically
func (w *SRTWriter) Write(cues []Cue, path string) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".srt-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := w.Encode(tmp, cues); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write subtitles: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tmpName, outputMode(path)); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move subtitles into place: %w", err)
	}
	return nil
}

// keeps the permissions of a file being replaced, 0644 for new files
func outputMode(path string) os.FileMode {
	if info, err := os.Stat(path); err == nil {
		return info.Mode().Perm()
	}
	return 0644
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0755)
}

// output path for an input timeline: same name with .srt extension
func OutputPathFor(inputPath, outputDir string) string {
	base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".srt"
	if outputDir == "" {
		return base
	}
	return filepath.Join(outputDir, filepath.Base(base))
}
