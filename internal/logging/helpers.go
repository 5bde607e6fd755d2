package logging

// Category convenience helpers. Each pair writes at info/debug level to the
// corresponding category file.

func Pipeline(format string, args ...interface{}) {
	Get(CategoryPipeline).Info(format, args...)
}

func PipelineDebug(format string, args ...interface{}) {
	Get(CategoryPipeline).Debug(format, args...)
}

func Phase(format string, args ...interface{}) {
	Get(CategoryPhase).Info(format, args...)
}

func PhaseDebug(format string, args ...interface{}) {
	Get(CategoryPhase).Debug(format, args...)
}

func Router(format string, args ...interface{}) {
	Get(CategoryRouter).Info(format, args...)
}

func RouterDebug(format string, args ...interface{}) {
	Get(CategoryRouter).Debug(format, args...)
}

func Fallback(format string, args ...interface{}) {
	Get(CategoryFallback).Info(format, args...)
}

func FallbackDebug(format string, args ...interface{}) {
	Get(CategoryFallback).Debug(format, args...)
}

func Batch(format string, args ...interface{}) {
	Get(CategoryBatch).Info(format, args...)
}

func BatchDebug(format string, args ...interface{}) {
	Get(CategoryBatch).Debug(format, args...)
}

func Cache(format string, args ...interface{}) {
	Get(CategoryCache).Info(format, args...)
}

func CacheDebug(format string, args ...interface{}) {
	Get(CategoryCache).Debug(format, args...)
}

func Tokens(format string, args ...interface{}) {
	Get(CategoryTokens).Info(format, args...)
}

func TokensDebug(format string, args ...interface{}) {
	Get(CategoryTokens).Debug(format, args...)
}

func Summarizer(format string, args ...interface{}) {
	Get(CategorySummarizer).Info(format, args...)
}

func SummarizerDebug(format string, args ...interface{}) {
	Get(CategorySummarizer).Debug(format, args...)
}

func Gateway(format string, args ...interface{}) {
	Get(CategoryGateway).Info(format, args...)
}

func GatewayDebug(format string, args ...interface{}) {
	Get(CategoryGateway).Debug(format, args...)
}
