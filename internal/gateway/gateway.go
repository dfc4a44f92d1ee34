// Package gateway assembles the detection service and runs it until a
// termination signal arrives. It is the composition root: everything the
// pipeline needs is constructed here and handed down, nothing reaches for
// globals.
package gateway

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/kawakawa0804/umi-no-me-web2/internal/auditlog"
	"github.com/kawakawa0804/umi-no-me-web2/internal/conf"
	"github.com/kawakawa0804/umi-no-me-web2/internal/datastore"
	"github.com/kawakawa0804/umi-no-me-web2/internal/detector"
	"github.com/kawakawa0804/umi-no-me-web2/internal/gate"
	"github.com/kawakawa0804/umi-no-me-web2/internal/httpcontroller"
	"github.com/kawakawa0804/umi-no-me-web2/internal/mqtt"
	"github.com/kawakawa0804/umi-no-me-web2/internal/observability"
	"github.com/kawakawa0804/umi-no-me-web2/internal/pipeline"
	"github.com/kawakawa0804/umi-no-me-web2/internal/telemetry"
)

// shutdownTimeout bounds how long Run waits for in-flight requests to drain
// on exit. A single inference on small hardware can take a few seconds, the
// timeout leaves room for one admitted frame to finish.
const shutdownTimeout = 10 * time.Second

// components holds everything build assembled so shutdown can release it in
// reverse order.
type components struct {
	settings  *conf.Settings
	metrics   *observability.Metrics
	audit     *auditlog.Store
	store     datastore.Interface // nil when no database output is enabled
	publisher mqtt.Client         // nil when MQTT is disabled
	registry  *detector.Registry
	admission *gate.Gate
	pipeline  *pipeline.Pipeline
	server    *httpcontroller.Server
}

// build wires the service together without starting any listener, so tests
// can assemble the exact production object graph and drive it directly.
func build(settings *conf.Settings) (*components, error) {
	observedMetrics, err := observability.NewMetrics()
	if err != nil {
		return nil, fmt.Errorf("error initializing metrics: %w", err)
	}

	audit, err := auditlog.New(settings.Audit.Path)
	if err != nil {
		return nil, fmt.Errorf("error initializing audit log: %w", err)
	}

	// Optional database persistence. The audit CSV is always on; a nil store
	// simply means CSV is the only record.
	dataStore := datastore.New(settings)
	if dataStore != nil {
		if err := dataStore.Open(); err != nil {
			return nil, err
		}
	}

	var publisher mqtt.Client
	if settings.MQTT.Enabled {
		client, err := mqtt.NewClient(settings, observedMetrics)
		if err != nil {
			// Publishing is additive, a broken broker config must not keep
			// the gateway from serving detections.
			log.Printf("Failed to create MQTT client: %v", err)
		} else {
			publisher = client
		}
	}

	admission := gate.New()
	registry := detector.NewRegistry(settings, observedMetrics.Detector)
	models := pipeline.RegistrySource{Registry: registry}

	proc := pipeline.New(settings, admission, models, audit, dataStore, publisher, observedMetrics)
	server := httpcontroller.New(settings, dataStore, audit, proc, admission, models, observedMetrics)

	return &components{
		settings:  settings,
		metrics:   observedMetrics,
		audit:     audit,
		store:     dataStore,
		publisher: publisher,
		registry:  registry,
		admission: admission,
		pipeline:  proc,
		server:    server,
	}, nil
}

// close releases integrations in reverse assembly order. The HTTP server is
// shut down separately so in-flight requests drain first.
func (c *components) close() {
	if c.publisher != nil {
		c.publisher.Disconnect()
	}
	c.registry.Close()
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			log.Printf("Failed to close database: %v", err)
		} else {
			log.Println("Successfully closed database")
		}
	}
}

// Run assembles the gateway and serves HTTP until SIGINT or SIGTERM.
func Run(settings *conf.Settings) error {
	printStartupBanner(settings)

	if err := telemetry.Init(settings); err != nil {
		log.Printf("Telemetry initialization failed: %v", err)
	}

	g, err := build(settings)
	if err != nil {
		return err
	}

	if g.publisher != nil {
		go connectMQTT(g.publisher)
	}

	g.server.Start()

	quitChan := make(chan os.Signal, 1)
	signal.Notify(quitChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quitChan
	log.Printf("Received %v, shutting down", sig)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown: %v", err)
	}

	g.close()
	telemetry.Flush(3 * time.Second)
	return nil
}

// printStartupBanner prints the operator-facing startup summary.
func printStartupBanner(settings *conf.Settings) {
	info, err := host.Info()
	if err != nil {
		fmt.Printf("❌ Error retrieving host info: %v\n", err)
	} else {
		fmt.Printf("System details: %s %s %s\n", info.OS, info.Platform, info.PlatformVersion)
	}
	if conf.RunningInContainer() {
		fmt.Println("Running inside a container")
	}

	fmt.Printf("Starting detection gateway. Model: %s, audit log: %s\n",
		settings.Model.Path, settings.Audit.Path)
}

// connectMQTT attempts the initial broker connection with retries. The
// client handles reconnects after a drop on its own, this loop only covers
// a broker that is down while the gateway starts.
func connectMQTT(client mqtt.Client) {
	const maxRetries = 5
	retryDelay := time.Second

	for i := 0; i < maxRetries; i++ {
		log.Println("Connecting to MQTT broker")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := client.Connect(ctx)
		cancel()

		if err == nil {
			log.Println("Successfully connected to MQTT broker")
			return
		}

		log.Printf("Failed to connect to MQTT broker (attempt %d/%d): %s", i+1, maxRetries, err)

		if i < maxRetries-1 {
			time.Sleep(retryDelay)
			retryDelay *= 2
		}
	}

	log.Println("Failed to connect to MQTT broker after maximum retries")
}
