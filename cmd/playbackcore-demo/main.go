// Command playbackcore-demo wires every component of the playback core
// together end to end against a real Subsonic-compatible server: ApiCache,
// ScrobbleQueue, PreloadCache, GainProvider, AudioFocusBridge,
// PlaybackController, and SystemSessionAdapter. It mirrors cmd/daemon's
// wiring style: flags, a cancellable root context tied to OS signals, a
// zerolog logger configured before anything else, and a Prometheus
// /metrics endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/syeo66/voidweaver-sub001/internal/apicache"
	"github.com/syeo66/voidweaver-sub001/internal/audiofocus"
	"github.com/syeo66/voidweaver-sub001/internal/catalog"
	"github.com/syeo66/voidweaver-sub001/internal/config"
	"github.com/syeo66/voidweaver-sub001/internal/gain"
	"github.com/syeo66/voidweaver-sub001/internal/log"
	"github.com/syeo66/voidweaver-sub001/internal/model"
	"github.com/syeo66/voidweaver-sub001/internal/playback"
	"github.com/syeo66/voidweaver-sub001/internal/preload"
	"github.com/syeo66/voidweaver-sub001/internal/scrobble"
	"github.com/syeo66/voidweaver-sub001/internal/store"
	"github.com/syeo66/voidweaver-sub001/internal/subsonicapi"
	"github.com/syeo66/voidweaver-sub001/internal/systemsession"
)

var version = "dev"

func main() {
	serverURL := flag.String("server", "", "Subsonic-compatible server base URL (https required)")
	username := flag.String("username", "", "account username")
	password := flag.String("password", "", "account password")
	albumID := flag.String("album", "", "album id to play on startup")
	dataDir := flag.String("data-dir", "./data", "directory for the sqlite-backed stores")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus /metrics listen address")
	configPath := flag.String("config", "", "path to settings.yaml")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	log.Configure(log.Config{Level: "info", Service: "voidweaver-playbackcore", Version: version})
	logger := log.WithComponent("main")

	if *serverURL == "" || *username == "" {
		logger.Fatal().Msg("--server and --username are required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load settings")
	}

	if err := os.MkdirAll(*dataDir, 0o755); err != nil {
		logger.Fatal().Err(err).Msg("failed to create data directory")
	}

	db, err := store.Open(ctx, *dataDir+"/playbackcore.sqlite", store.DefaultConfig())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer db.Close()

	creds := subsonicapi.Credentials{Username: *username, Password: *password, ClientID: "voidweaver"}
	transport := subsonicapi.NewHTTPTransport(*serverURL, creds, settings.Network)
	client, err := subsonicapi.NewClient(*serverURL, creds, transport)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to construct subsonic client")
	}

	cache := apicache.New(apicache.WithStore(db))
	loader := catalog.New(client, cache)
	submitter := catalog.NewSubmitter(client)

	scrobbleQueue := scrobble.New(db, submitter)
	go scrobbleQueue.Run(ctx)
	defer scrobbleQueue.Close()

	engine := newStubEngine()
	factory := stubFactory{engine: engine}

	playlist := &model.Playlist{}
	preloadCache := preload.New(playlist, loader, factory)

	controller := playback.New(playback.Deps{
		Albums:    loader,
		Randoms:   loader,
		Resolver:  loader,
		Playlist:  playlist,
		Preload:   preloadCache,
		Scrobbler: scrobbleQueue,
		Gainer:    gain.ReplayGain{},
		Focus:     audiofocus.New(stubFocusPlatform{}),
		Engine:    engine,
		Factory:   factory,
		Settings:  settings,
		Service:   model.Service("subsonic"),
	})

	adapter := systemsession.New(logPublisher{})
	adapter.Attach(controller)

	go consumeDecoderEvents(ctx, controller, engine)
	go pruneApiCachePeriodically(ctx, cache)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warn().Err(err).Msg("metrics server stopped")
		}
	}()

	if *albumID != "" {
		if err := controller.PlayAlbum(ctx, *albumID); err != nil {
			logger.Error().Err(err).Str("album_id", *albumID).Msg("failed to start album playback")
		}
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	_ = controller.Stop(shutdownCtx)
	controller.Close()
}

// consumeDecoderEvents feeds the stub engine's event stream into the
// controller, driving auto-advance on completion the same way a real
// platform decoder's callback would.
func consumeDecoderEvents(ctx context.Context, controller *playback.Controller, engine *stubEngine) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-engine.Events():
			controller.HandleDecoderEvent(ctx, evt)
		}
	}
}

// pruneApiCachePeriodically runs ApiCache's persistent-tier GC on a fixed
// schedule, matching the "expired entries discarded silently" policy for
// rows that outlive any in-memory reference to them.
func pruneApiCachePeriodically(ctx context.Context, cache *apicache.Cache) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := cache.PruneExpired(ctx); err != nil {
				log.WithComponent("apicache").Warn().Err(err).Msg("periodic prune failed")
			}
		}
	}
}
