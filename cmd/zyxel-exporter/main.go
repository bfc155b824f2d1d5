package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	versioncollector "github.com/prometheus/client_golang/prometheus/collectors/version"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/version"
	"github.com/swoga/zyxel-webctl/cache"
	"github.com/swoga/zyxel-webctl/collector"
	"github.com/swoga/zyxel-webctl/config"
	"github.com/swoga/zyxel-webctl/device"
	"go.uber.org/zap"
)

type cachedSession struct {
	opts    device.Options
	session *device.Session
}

var (
	sc       *config.SafeConfig
	sessions = cache.New[string, cachedSession]()
	log      *zap.Logger
)

func main() {
	// parse command line args
	configFile := flag.String("config.file", "", "")
	envFile := flag.String("env.file", ".env", "file with ZYXEL_USERNAME and ZYXEL_PASSWORD")
	debug := flag.Bool("debug", false, "")
	flag.Parse()

	level := zap.InfoLevel
	if *debug {
		level = zap.DebugLevel
	}

	zapConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	log, _ = zapConfig.Build()
	defer log.Sync()
	log.Info("starting zyxel-exporter", zap.String("version", version.Version), zap.String("revision", version.Revision))

	if err := godotenv.Load(*envFile); err != nil {
		log.Debug("no env file loaded", zap.String("file", *envFile), zap.Error(err))
	}

	// inital config load
	sc = config.New(*configFile)
	err := sc.LoadConfig()
	if err != nil {
		log.Fatal("error loading config", zap.Error(err))
	}

	prometheus.MustRegister(versioncollector.NewCollector("zyxel_exporter"))

	// setup config reload
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	reloadRequest := make(chan chan error)
	go func() {
		for {
			var err error
			select {
			case <-hup:
				log.Debug("config reload triggered by SIGHUP")
				err = sc.LoadConfig()
			case reloadResult := <-reloadRequest:
				log.Debug("config reload triggered by API")
				err = sc.LoadConfig()
				reloadResult <- err
			}
			if err != nil {
				log.Error("error reloading config", zap.Error(err))
			} else {
				log.Info("reloaded config file")
			}
		}
	}()

	http.HandleFunc("/-/reload", func(w http.ResponseWriter, r *http.Request) {
		reloadResult := make(chan error)
		reloadRequest <- reloadResult
		err := <-reloadResult
		if err != nil {
			http.Error(w, fmt.Sprintf("failed to reload config: %s", err), http.StatusInternalServerError)
		}
	})

	// start http server
	config := sc.Get()
	http.Handle(config.MetricsPath, promhttp.Handler())
	http.HandleFunc(config.ProbePath, handleRequest)

	log.Info("starting http server", zap.String("metrics_path", config.MetricsPath), zap.String("probe_path", config.ProbePath), zap.String("listen", config.Listen))

	err = http.ListenAndServe(config.Listen, nil)
	if err != nil {
		log.Fatal("error starting http server", zap.Error(err))
	}
}

func handleRequest(w http.ResponseWriter, r *http.Request) {
	config := sc.Get()
	target := r.URL.Query().Get("target")
	if target == "" {
		log.Error("request with missing target")
		http.Error(w, "?target= missing", http.StatusBadRequest)
		return
	}

	log := log.With(zap.String("target", target))

	dev, ok := config.Devices[target]
	if !ok {
		log.Error("unknown target")
		http.Error(w, "unknown target", http.StatusBadRequest)
		return
	}

	timeout := time.Duration(getTimeout(config, r) * float64(time.Second))

	ctx, cancel := context.WithTimeout(r.Context(), timeout)
	defer cancel()
	r = r.WithContext(ctx)

	start := time.Now()
	registry := prometheus.NewRegistry()
	exporterRegistry := prometheus.WrapRegistererWithPrefix("zyxel_exporter_", registry)

	err := probeDevice(ctx, log, target, dev, timeout, exporterRegistry)
	var success float64 = 1
	if err != nil {
		log.Error("error probing device", zap.Error(err))
		success = 0
	}

	probeDurationGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "probe_duration_seconds",
		Help: "Returns how long the probe took to complete in seconds",
	})
	registry.MustRegister(probeDurationGauge)
	duration := time.Since(start).Seconds()
	probeDurationGauge.Set(duration)

	probeSuccessGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "probe_success",
		Help: "Displays whether or not the probe was a success",
	})
	registry.MustRegister(probeSuccessGauge)
	probeSuccessGauge.Set(success)

	h := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	h.ServeHTTP(w, r)
}

func getTimeout(config *config.Config, r *http.Request) float64 {
	value := r.Header.Get("X-Prometheus-Scrape-Timeout-Seconds")
	if value != "" {
		timeout, err := strconv.ParseFloat(value, 64)
		if err == nil && timeout > 0 {
			return timeout
		}
	}
	return config.Timeout
}

// getSession returns the cached session of target, replacing it when the device config changed.
func getSession(log *zap.Logger, target string, dev *config.Device, timeout time.Duration) (*device.Session, error) {
	opts := dev.SessionOptions(timeout)
	if cached, ok := sessions.Get(target); ok && cached.opts == opts {
		return cached.session, nil
	}
	session, err := device.New(log, opts)
	if err != nil {
		return nil, err
	}
	sessions.Set(target, cachedSession{opts: opts, session: session})
	return session, nil
}

func probeDevice(ctx context.Context, log *zap.Logger, target string, dev *config.Device, timeout time.Duration, registry prometheus.Registerer) error {
	session, err := getSession(log, target, dev, timeout)
	if err != nil {
		return err
	}

	err = collect(ctx, session, dev.Options, registry)
	if err != nil {
		// drop the session, the next probe logs in again
		session.Logout()
		sessions.Remove(target)
		return err
	}
	return nil
}

func collect(ctx context.Context, session *device.Session, options *config.Options, registry prometheus.Registerer) error {
	info, err := session.SystemInfo(ctx)
	if err != nil {
		return fmt.Errorf("error reading system info: %w", err)
	}
	collector.AddMetricsDevice(registry, info)

	if options.ExportPorts {
		ports, err := session.Ports(ctx)
		if err != nil {
			return fmt.Errorf("error reading ports: %w", err)
		}
		collector.AddMetricsPorts(registry, ports)
	}

	if options.ExportVLANs {
		vlans, err := session.VLANs(ctx)
		if err != nil {
			return fmt.Errorf("error reading VLANs: %w", err)
		}
		collector.AddMetricsVLANs(registry, vlans)
	}

	if options.ExportPortVLAN {
		settings, err := session.VLANPortSettings(ctx)
		if err != nil {
			return fmt.Errorf("error reading VLAN port settings: %w", err)
		}
		collector.AddMetricsPortVLAN(registry, settings)
	}

	return nil
}
