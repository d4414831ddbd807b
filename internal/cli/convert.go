package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/mgpai22/xmeml2srt/internal/config"
	"github.com/mgpai22/xmeml2srt/internal/extract"
	"github.com/mgpai22/xmeml2srt/internal/logging"
	"github.com/mgpai22/xmeml2srt/internal/subtitle"
	"github.com/mgpai22/xmeml2srt/internal/timecode"
	"github.com/mgpai22/xmeml2srt/internal/translate"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
)

var convertCmd = &cobra.Command{
	Use:   "convert [timeline.xml ...]",
	Short: "Convert timeline caption items to an SRT file",
	Long: `Convert the text generator items of Final Cut Pro XML timelines into SRT files.

Every input gets its own output file next to it (or in --output-dir) with the
.srt extension. Use -o to pick the output path for a single input, or -o - to
print the subtitles to stdout.

Captions can optionally be translated with an LLM provider before writing.

Examples:
  xmeml2srt convert timeline.xml
  xmeml2srt convert timeline.xml -o captions.srt --legacy-millis
  xmeml2srt convert ep1.xml ep2.xml --output-dir subs
  xmeml2srt convert timeline.xml --translate-to japanese --provider openai --overlay`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addConvertFlags(convertCmd)
}

func addConvertFlags(cmd *cobra.Command) {
	cmd.Flags().
		Bool("legacy-millis", false, "Write milliseconds unpadded (00:00:01,5) for legacy players")
	cmd.Flags().
		Bool("honor-ntsc", false, "Use the 1000/1001 NTSC rate when the timeline marks <ntsc>TRUE</ntsc>")
	cmd.Flags().
		String("output-dir", "", "Directory for generated subtitle files")
	cmd.Flags().
		StringP("translate-to", "t", "", "Translate captions to this language before writing")
	cmd.Flags().
		String("provider", "gemini", "Translation provider (gemini, openai, anthropic)")
	cmd.Flags().
		StringP("api-key", "k", "", "API key (or set GEMINI_API_KEY/OPENAI_API_KEY/ANTHROPIC_API_KEY)")
	cmd.Flags().
		String("model", "", "Model to use for translation (provider-specific default)")
	cmd.Flags().
		Int("concurrency", translate.DefaultConcurrency, "Number of parallel translation workers")
	cmd.Flags().
		Int("batch-size", translate.DefaultBatchSize, "Number of captions per translation request")
	cmd.Flags().
		Bool("overlay", false, "Keep the original caption below the translation")
	cmd.Flags().
		String("prompt", "", "Additional instructions for the translation model")
}

// effective settings after merging the config file with flags
type convertSettings struct {
	outputPath string
	outputDir  string
	extract    extract.Options
	translate  config.Translate
	apiKey     string
}

func resolveSettings(cmd *cobra.Command, cfg *config.Config) (convertSettings, error) {
	flags := cmd.Flags()
	s := convertSettings{
		outputDir: cfg.OutputDir,
		translate: cfg.Translate,
	}

	legacy := cfg.LegacyMillis
	if flags.Changed("legacy-millis") {
		legacy, _ = flags.GetBool("legacy-millis")
	}
	if legacy {
		s.extract.Millis = timecode.MillisLegacy
	}

	s.extract.HonorNTSC = cfg.HonorNTSC
	if flags.Changed("honor-ntsc") {
		s.extract.HonorNTSC, _ = flags.GetBool("honor-ntsc")
	}

	s.outputPath, _ = flags.GetString("output")
	if flags.Changed("output-dir") {
		s.outputDir, _ = flags.GetString("output-dir")
	}

	if flags.Changed("translate-to") {
		s.translate.TargetLanguage, _ = flags.GetString("translate-to")
	}
	if flags.Changed("provider") {
		s.translate.Provider, _ = flags.GetString("provider")
	}
	if flags.Changed("model") {
		s.translate.Model, _ = flags.GetString("model")
	}
	if flags.Changed("concurrency") {
		s.translate.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("batch-size") {
		s.translate.BatchSize, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("overlay") {
		s.translate.Overlay, _ = flags.GetBool("overlay")
	}
	if flags.Changed("prompt") {
		s.translate.Prompt, _ = flags.GetString("prompt")
	}
	s.translate.Provider = strings.ToLower(strings.TrimSpace(s.translate.Provider))

	if s.translate.Concurrency <= 0 {
		return s, fmt.Errorf("concurrency must be positive, got %d", s.translate.Concurrency)
	}
	if s.translate.BatchSize <= 0 {
		return s, fmt.Errorf("batch-size must be positive, got %d", s.translate.BatchSize)
	}

	s.apiKey, _ = flags.GetString("api-key")
	if s.apiKey == "" && s.translate.TargetLanguage != "" {
		s.apiKey = os.Getenv(translate.Provider(s.translate.Provider).APIKeyEnv())
	}

	return s, nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	settings, err := resolveSettings(cmd, cfg)
	if err != nil {
		return err
	}

	if len(args) > 1 && settings.outputPath != "" {
		return fmt.Errorf("--output can only be used with a single input, use --output-dir instead")
	}

	c := &converter{
		extractor:   extract.New(settings.extract),
		writer:      subtitle.NewSRTWriter(),
		stdout:      cmd.OutOrStdout(),
		logger:      logger,
		concurrency: settings.translate.Concurrency,
		overlay:     settings.translate.Overlay,
	}

	if target := settings.translate.TargetLanguage; target != "" {
		provider := translate.Provider(settings.translate.Provider)
		if settings.apiKey == "" {
			return fmt.Errorf(
				"API key is required for translation: use --api-key flag or set %s environment variable",
				provider.APIKeyEnv(),
			)
		}

		c.translator, err = translate.Factory(ctx, provider, settings.apiKey, translate.Options{
			InputLanguage:  settings.translate.InputLanguage,
			TargetLanguage: target,
			Model:          settings.translate.Model,
			Prompt:         settings.translate.Prompt,
			BatchSize:      settings.translate.BatchSize,
		})
		if err != nil {
			return fmt.Errorf("failed to create translator: %w", err)
		}
	}

	var errs error
	for _, input := range args {
		output := settings.outputPath
		if output == "" {
			output = subtitle.OutputPathFor(input, settings.outputDir)
		}

		if err := c.convert(ctx, input, output); err != nil {
			logger.Errorw("Conversion failed",
				"input", input,
				"error", err,
			)
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", input, err))
		}
	}

	return errs
}

// converts one timeline per call; nothing is shared between calls except
// the stateless extractor and translator
type converter struct {
	extractor   *extract.Extractor
	translator  translate.Translator
	writer      subtitle.Writer
	stdout      io.Writer
	logger      *logging.Logger
	concurrency int
	overlay     bool
}

func (c *converter) convert(ctx context.Context, inputPath, outputPath string) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("file not found: %s", inputPath)
	}

	c.logger.Infow("Extracting captions",
		"input", inputPath,
		"output", outputPath,
	)

	cues, err := c.extractor.ExtractFile(ctx, inputPath)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	c.logger.Debugw("Extracted captions",
		"input", inputPath,
		"cues", len(cues),
	)

	if c.translator != nil && len(cues) > 0 {
		c.logger.Infow("Translating captions",
			"cues", len(cues),
			"concurrency", c.concurrency,
		)
		cues, err = translate.TranslateCues(ctx, c.translator, cues, c.concurrency, c.overlay)
		if err != nil {
			return fmt.Errorf("translation failed: %w", err)
		}
	}

	if outputPath == "-" {
		return c.writer.Encode(c.stdout, cues)
	}

	if err := c.writer.Write(cues, outputPath); err != nil {
		return fmt.Errorf("failed to write subtitles: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Fprintf(c.stdout, "Subtitles written: %s\n", absOutput)
	fmt.Fprintf(c.stdout, "  Cues: %d\n", len(cues))

	return nil
}
