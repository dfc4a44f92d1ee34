package benchmark

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/cpuspec"
	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
)

// frameCount holds the frame count flag value
var frameCount int

func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Run detection pipeline benchmark",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Validate frame count
			if frameCount < 1 || frameCount > 10000 {
				return fmt.Errorf("frame count must be between 1 and 10000, got %d", frameCount)
			}
			return runBenchmark(settings, frameCount)
		},
	}

	cmd.Flags().IntVarP(&frameCount, "frames", "n", 100, "number of frames to push through the pipeline (1-10000)")

	return cmd
}

// benchmarkResults stores benchmark metrics
type benchmarkResults struct {
	totalFrames     int           // number of frames processed
	avgFrameTime    time.Duration // average time per frame
	p50FrameTime    time.Duration // median frame latency
	p95FrameTime    time.Duration // 95th percentile frame latency
	framesPerSecond float64       // throughput in frames per second
}

func runBenchmark(settings *conf.Settings, frames int) error {
	spec := cpuspec.GetCPUSpec()
	fmt.Printf("💻 CPU: %s\n", spec.BrandName)
	if spec.PerformanceCores > 0 {
		fmt.Printf("💻 Performance cores: %d (recommended inference threads: %d)\n",
			spec.PerformanceCores, spec.GetOptimalThreadCount())
	}
	fmt.Printf("🚀 Pushing %d synthetic frames through the detection pipeline\n\n", frames)

	var results benchmarkResults
	if err := runPipelineBenchmark(settings, &results, frames); err != nil {
		return fmt.Errorf("❌ benchmark failed: %w", err)
	}

	// Show latency summary
	fmt.Printf("\nResults:\n")
	fmt.Printf("Metric         Latency       \n")
	fmt.Printf("─────────────  ──────────────\n")
	fmt.Printf("Average        %8.1f ms\n", float64(results.avgFrameTime.Microseconds())/1000.0)
	fmt.Printf("p50            %8.1f ms\n", float64(results.p50FrameTime.Microseconds())/1000.0)
	fmt.Printf("p95            %8.1f ms\n", float64(results.p95FrameTime.Microseconds())/1000.0)
	fmt.Printf("─────────────  ──────────────\n")
	fmt.Printf("Throughput     %8.2f frames/sec\n", results.framesPerSecond)

	rating, description := getPerformanceRating(float64(results.p95FrameTime.Milliseconds()))
	fmt.Printf("\nSystem Rating: %s, %s\n", rating, description)

	return nil
}

func runPipelineBenchmark(settings *conf.Settings, results *benchmarkResults, frames int) error {
	// The benchmark writes its audit rows to a scratch file so the real
	// detection log stays untouched.
	scratchDir, err := os.MkdirTemp("", "umi-no-me-benchmark-")
	if err != nil {
		return fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	benchSettings := *settings
	benchSettings.Audit.Path = filepath.Join(scratchDir, "detections.csv")

	audit, err := auditlog.New(benchSettings.Audit.Path)
	if err != nil {
		return fmt.Errorf("failed to open scratch audit log: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	registry := detector.NewRegistry(&benchSettings, metrics.Detector)
	defer registry.Close()

	proc := pipeline.New(&benchSettings, gate.New(), pipeline.RegistrySource{Registry: registry},
		audit, nil, nil, metrics)

	frame, err := syntheticFrame()
	if err != nil {
		return fmt.Errorf("failed to generate synthetic frame: %w", err)
	}

	ctx := context.Background()
	request := &pipeline.Request{ImageData: frame, SourceIP: "benchmark"}

	// Warmup pass, loads the model so the timed loop measures steady state.
	fmt.Println("⏳ Warming up the model...")
	if _, err := proc.Process(ctx, request); err != nil {
		return fmt.Errorf("warmup inference failed: %w", err)
	}

	fmt.Printf("⏳ Running benchmark over %d frames...\n", frames)

	latencies := make([]time.Duration, 0, frames)
	var totalDuration time.Duration
	for i := 0; i < frames; i++ {
		frameStart := time.Now()
		if _, err := proc.Process(ctx, request); err != nil {
			return fmt.Errorf("frame %d failed: %w", i+1, err)
		}
		frameTime := time.Since(frameStart)
		latencies = append(latencies, frameTime)
		totalDuration += frameTime

		// Update progress display
		if (i+1)%10 == 0 {
			avgTime := totalDuration / time.Duration(i+1)
			fmt.Printf("\r🔄 Frames: \033[1;36m%d\033[0m, Average time: \033[1;33m%dms\033[0m",
				i+1, avgTime.Milliseconds())
		}
	}
	fmt.Println()

	*results = summarizeLatencies(latencies, totalDuration)

	return nil
}

// summarizeLatencies sorts the per-frame timings and derives the summary
// reported after the run. The slice is sorted in place.
func summarizeLatencies(latencies []time.Duration, total time.Duration) benchmarkResults {
	frames := len(latencies)
	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

	p95 := frames * 95 / 100
	if p95 >= frames {
		p95 = frames - 1
	}

	return benchmarkResults{
		totalFrames:     frames,
		avgFrameTime:    total / time.Duration(frames),
		p50FrameTime:    latencies[frames/2],
		p95FrameTime:    latencies[p95],
		framesPerSecond: float64(frames) / total.Seconds(),
	}
}

// syntheticFrame encodes a VGA gradient as JPEG, roughly the size and
// entropy of a real camera frame.
func syntheticFrame() ([]byte, error) {
	img := image.NewNRGBA(image.Rect(0, 0, 640, 480))
	for y := 0; y < 480; y++ {
		for x := 0; x < 640; x++ {
			img.Set(x, y, color.NRGBA{
				R: uint8(x % 256),
				G: uint8(y % 256),
				B: uint8((x + y) % 256),
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func getPerformanceRating(frameTime float64) (rating, description string) {
	switch {
	case frameTime > 3000:
		return "❌ Failed", "System is too slow for live camera feeds"
	case frameTime > 2000:
		return "❌ Very Poor", "System is too slow for reliable operation"
	case frameTime > 1000:
		return "⚠️ Poor", "System may struggle with live camera feeds"
	case frameTime > 500:
		return "👍 Decent", "System should keep up with a single camera"
	case frameTime > 200:
		return "✨ Good", "System will perform well"
	case frameTime > 100:
		return "🌟 Very Good", "System will perform very well"
	case frameTime > 20:
		return "🏆 Excellent", "System will perform excellently"
	default:
		return "🚀 Superb", "System will perform exceptionally well"
	}
}
