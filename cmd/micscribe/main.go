package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/yegors/micscribe/internal/api"
	"github.com/yegors/micscribe/internal/audio"
	"github.com/yegors/micscribe/internal/capture"
	"github.com/yegors/micscribe/internal/capture/pamic"
	"github.com/yegors/micscribe/internal/channel"
	"github.com/yegors/micscribe/internal/config"
	"github.com/yegors/micscribe/internal/export"
	"github.com/yegors/micscribe/internal/presenter"
	"github.com/yegors/micscribe/internal/recorder"
	"github.com/yegors/micscribe/pkg/logger"
)

const usage = "Enter: start/stop recording | c: clear | y: copy | d: download | q: quit"

func main() {
	configPath := flag.String("config", "", "Path to TOML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Error("micscribe exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	format := audio.Format{SampleRate: cfg.Capture.SampleRate, Channels: cfg.Capture.Channels}

	view := presenter.NewView()
	console := presenter.NewConsole(os.Stdout, cfg.Export.Notifications, log)
	ctrl := recorder.New(
		recorder.Options{ResultTimeout: cfg.Channel.ResultTimeout()},
		presenter.Multi{console, view},
		export.New(cfg.Export.Dir, log),
		log,
	)

	device := pamic.NewDevice(format, cfg.Capture.FramesPerBuffer, log)
	session := capture.NewSession(device, capture.Options{
		ChunkMs:         cfg.Capture.ChunkMs,
		FramesPerBuffer: cfg.Capture.FramesPerBuffer,
	}, ctrl.CaptureHandlers(), log)

	ch := channel.New(channel.Options{
		URL:               cfg.Channel.URL,
		HandshakeTimeout:  cfg.Channel.HandshakeTimeout(),
		ReconnectAttempts: cfg.Channel.ReconnectAttempts,
		ReconnectInterval: cfg.Channel.ReconnectInterval(),
	}, ctrl.ChannelHandler(), log)
	defer ch.Close()

	ctrl.Attach(session, ch)

	log.Info("Starting micscribe",
		logger.String("service_url", cfg.Channel.URL),
		logger.Int("sample_rate", format.SampleRate),
		logger.Int("channels", format.Channels),
		logger.Int("chunk_ms", cfg.Capture.ChunkMs))

	// The service may come up later; SendAudio redials on demand
	if err := ch.Connect(ctx); err != nil {
		log.Warn("Transcription service not reachable yet", logger.Error(err))
	}

	done := make(chan error, 1)
	go func() {
		done <- ctrl.Run(ctx)
	}()

	var control *http.Server
	if cfg.Control.Enabled {
		router := api.NewRouter(ctrl, view, cfg.Control.CORSAllowedOrigins, log)
		control = &http.Server{
			Addr:              cfg.Control.Address,
			Handler:           router.Routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			log.Info("Starting control API", logger.String("address", control.Addr))
			if err := control.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Control API error", logger.Error(err))
			}
		}()
	}

	fmt.Fprintln(os.Stdout, usage)
	go readKeys(ctx, os.Stdin, ctrl, log, cancel)

	<-ctx.Done()
	log.Info("Shutting down")

	if control != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := control.Shutdown(shutdownCtx); err != nil {
			log.Warn("Error stopping control API", logger.Error(err))
		}
	}

	return awaitExit(done, session)
}

// awaitExit waits for the controller loop and then for the capture goroutine,
// which closes the stream and terminates the audio host
func awaitExit(done <-chan error, session interface{ Wait() }) error {
	err := <-done
	session.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// readKeys maps one line of terminal input to one controller request
func readKeys(ctx context.Context, in io.Reader, ctrl *recorder.Controller, log *logger.Logger, quit context.CancelFunc) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		var err error
		switch strings.ToLower(strings.TrimSpace(scanner.Text())) {
		case "":
			err = ctrl.Toggle()
		case "c":
			err = ctrl.Clear()
		case "y":
			err = ctrl.Copy(ctx)
		case "d":
			var path string
			if path, err = ctrl.Download(ctx); err == nil {
				fmt.Fprintf(os.Stdout, "Saved %s\n", path)
			}
		case "q":
			quit()
			return
		default:
			fmt.Fprintln(os.Stdout, usage)
		}

		if errors.Is(err, recorder.ErrExportDisabled) {
			fmt.Fprintln(os.Stdout, "Nothing to export yet")
		} else if err != nil {
			log.Warn("Command failed", logger.Error(err))
		}
	}
}
