package cli

import (
	"errors"

	"github.com/mgpai22/xmeml2srt/internal/extract"
	"github.com/mgpai22/xmeml2srt/internal/logging"
	"github.com/mgpai22/xmeml2srt/internal/timecode"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
	logger     *logging.Logger
)

var rootCmd = &cobra.Command{
	Use:   "xmeml2srt",
	Short: "Convert Final Cut Pro XML captions to SRT subtitles",
	Long: `xmeml2srt reads Final Cut Pro 7 XML (xmeml) timeline exports and turns
their text generator items into SubRip (.srt) subtitles.

Each generator item becomes one cue; its start and end frames are converted
with the timeline's time base.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger = logging.NewLogger(verbose)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

// process exit status for an Execute error
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, extract.ErrInvalidRootElement),
		errors.Is(err, extract.ErrMalformedInput),
		errors.Is(err, timecode.ErrInvalidTimeBase):
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.PersistentFlags().
		BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Config file path (default ./xmeml2srt.yaml if present)")
	rootCmd.PersistentFlags().
		StringP("output", "o", "", "Output file path (\"-\" for stdout)")
}
