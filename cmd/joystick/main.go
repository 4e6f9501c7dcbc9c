package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/flarexio/joystick"
	"github.com/flarexio/joystick/hub"
)

const (
	Version string = "0.0.0"
)

func main() {
	app := &cli.App{
		Name: "joystick",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "path",
				Usage:   "Specifies the working directory for the Joystick service.",
				EnvVars: []string{"JOYSTICK_PATH"},
			},
			&cli.StringFlag{
				Name:    "nats",
				EnvVars: []string{"NATS_URL"},
				Value:   nats.DefaultURL,
			},
		},
		Action: run,
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(cli *cli.Context) error {
	log, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer log.Sync()

	zap.ReplaceGlobals(log)

	path := cli.String("path")
	if path == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		path = homeDir + "/.flarex/joystick"
	}

	f, err := os.Open(path + "/config.yaml")
	if err != nil {
		return err
	}
	defer f.Close()

	var cfg *joystick.Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return err
	}

	cfg.Path = path

	settingsFile := cfg.SettingsFile
	if settingsFile == "" {
		settingsFile = "settings.yaml"
	}

	settings, err := joystick.NewFileSettings(path + "/" + settingsFile)
	if err != nil {
		return err
	}

	driver, err := joystick.NewSDLDriver()
	if err != nil {
		return err
	}
	defer driver.Close()

	natsURL := cli.String("nats")
	natsCreds := path + "/user.creds"

	opts := []nats.Option{
		nats.Name("joystick"),
	}

	if _, err := os.Stat(natsCreds); err == nil {
		opts = append(opts, nats.UserCredentials(natsCreds))
	}

	nc, err := nats.Connect(natsURL, opts...)
	if err != nil {
		return err
	}
	defer nc.Drain()

	svc := joystick.NewService(cfg, driver, settings)
	svc = joystick.LoggingMiddleware(log)(svc)

	h := hub.NewHub()
	go h.Run()

	svc.AddListener(hub.NewListener(h))

	if controls := cfg.Controls.NATS; controls != nil {
		svc.AddListener(joystick.NewNATSPublisher(nc, controls.Subject))
	}

	if controls := cfg.Controls.MQTT; controls != nil {
		sink, err := joystick.NewMQTTSink(controls)
		if err != nil {
			return err
		}
		defer sink.Close()

		svc.SetActiveUAS(sink)
	}

	// Pick the first joystick found, as the GUI would on startup.
	if devices := svc.Devices(); len(devices) > 0 {
		svc.SetActiveJoystick(devices[0].ID)
	}

	if err := svc.Start(); err != nil {
		return err
	}
	defer svc.Shutdown()

	peers := joystick.NewPeerManager(cfg, nc, svc)
	defer peers.Close()

	srv, err := micro.AddService(nc, micro.Config{
		Name:    "joystick",
		Version: Version,
	})
	if err != nil {
		return err
	}
	defer srv.Stop()

	group := srv.AddGroup("joystick")
	group.AddEndpoint("devices", joystick.DevicesHandler(svc))
	group.AddEndpoint("select", joystick.SelectDeviceHandler(svc))
	group.AddEndpoint("mapping", joystick.AxisMappingHandler(svc))
	group.AddEndpoint("calibration", joystick.AxisCalibrationHandler(svc))
	group.AddEndpoint("state", joystick.StateHandler(svc))

	negotiation := srv.AddGroup("peers")
	negotiation.AddEndpoint("negotiation", joystick.AcceptPeerHandler(peers))

	var httpServer *http.Server
	if cfg.Hub.Listen != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("/ws", hub.Handler(h, svc))

		httpServer = &http.Server{
			Addr:    cfg.Hub.Listen,
			Handler: mux,
		}

		go func() {
			err := httpServer.ListenAndServe()
			if err != nil && err != http.ErrServerClosed {
				log.Error(err.Error())
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sign := <-quit // Wait for a termination signal

	log.Info("graceful shutdown", zap.String("signal", sign.String()))

	svc.StoreSettings()

	if httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		httpServer.Shutdown(ctx)
	}

	return nil
}
