package bootstrap

import (
	"log"

	"line-work-assistant/internal/config"
	"line-work-assistant/internal/pkg/logger"
	"line-work-assistant/pkg/audio"
	"line-work-assistant/pkg/llm"
	"line-work-assistant/pkg/llm/factory"
	"line-work-assistant/pkg/stt/openai"
)

// NewLLMProvider builds the configured chat/summary provider.
func NewLLMProvider(cfg *config.Config) (llm.LLMProvider, error) {
	return factory.NewLLMProvider(factory.ProviderConfig{
		Type:          cfg.Ai.LLMProvider,
		Model:         cfg.Ai.LLMModel,
		OpenAIAPIKey:  cfg.Ai.OpenAIAPIKey,
		OpenAIBaseURL: cfg.Ai.OpenAIBaseURL,
		OllamaBaseURL: cfg.Ai.OllamaBaseURL,
		HFAPIKey:      cfg.Ai.HuggingFaceAPIKey,
		Timeout:       cfg.Timeouts.LLM,
	})
}

// NewAudioPipeline wires segmentation, speech-to-text and summarization.
// ffmpeg is preferred; raw byte ranges are used when it is missing or fails.
func NewAudioPipeline(cfg *config.Config, llmProvider llm.LLMProvider, sysLogger logger.ILogger) *audio.Pipeline {
	byteSegmenter := audio.NewByteSegmenter(cfg.Audio.ChunkMaxBytes, cfg.Audio.ByteSplitParts)

	var segmenter audio.Segmenter = byteSegmenter
	ffmpeg := audio.NewFFmpegSegmenter(cfg.Audio.FFmpegPath, cfg.Audio.SegmentSeconds, cfg.App.TempDir)
	if ffmpeg.Available() {
		segmenter = audio.NewFallbackSegmenter(ffmpeg, byteSegmenter, sysLogger)
		log.Printf("[INFO] Using audio segmenter: FFMPEG (%s, %ds)", cfg.Audio.FFmpegPath, cfg.Audio.SegmentSeconds)
	} else {
		log.Printf("[WARN] %s not found, splitting audio by byte ranges", cfg.Audio.FFmpegPath)
	}

	transcriber := openai.NewWhisperClient(
		cfg.Ai.OpenAIAPIKey,
		cfg.Ai.OpenAIBaseURL,
		cfg.Ai.STTModel,
		cfg.Timeouts.STT,
	)

	return audio.NewPipeline(
		audio.PipelineConfig{
			Policy: audio.Policy{
				DirectMaxBytes: cfg.Audio.DirectMaxBytes,
				SyncMaxBytes:   cfg.Audio.SyncMaxBytes,
				HardCapBytes:   cfg.Audio.HardCapBytes,
			},
			Language:          cfg.Ai.TranscriptionLanguage,
			ChunkDelay:        cfg.Audio.ChunkDelay,
			SummaryCharBudget: cfg.Audio.SummaryCharBudget,
			SummaryMaxTokens:  cfg.Ai.SummaryMaxTokens,
			TempDir:           cfg.App.TempDir,
		},
		segmenter,
		transcriber,
		llmProvider,
		sysLogger,
	)
}
