// Command filterchain-run drives a graph description against a real
// sound card: it wires registry → builder → planner → executor → control
// plane end to end, exercising the capture → graph → playback data flow
// spec.md §2 describes. It is a demonstration harness, not part of the
// engine proper — the engine never imports this package.
package main

import (
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/kosmolabs/filterchain/pkg/control"
	"github.com/kosmolabs/filterchain/pkg/fcerr"
	"github.com/kosmolabs/filterchain/pkg/graph"
	"github.com/kosmolabs/filterchain/pkg/plugin/builtin"
	"github.com/kosmolabs/filterchain/pkg/plugin/ladspa"
	"github.com/kosmolabs/filterchain/pkg/plugin/lv2"
	"github.com/kosmolabs/filterchain/pkg/registry"
	"github.com/kosmolabs/filterchain/pkg/spajson"
	"github.com/kosmolabs/filterchain/pkg/stream"
)

// runConfig mirrors the original module's capture.props/playback.props
// option surface: device selection and format, loaded from a small YAML
// file so the graph description itself never needs these fields.
type runConfig struct {
	Capture struct {
		Device   int `yaml:"device"`
		Channels int `yaml:"channels"`
	} `yaml:"capture"`
	Playback struct {
		Device   int `yaml:"device"`
		Channels int `yaml:"channels"`
	} `yaml:"playback"`
	SampleRate float64 `yaml:"sampleRate"`
	Period     int     `yaml:"period"`
	NATSURL    string  `yaml:"natsUrl"`
}

func defaultConfig() runConfig {
	cfg := runConfig{SampleRate: 48000, Period: 256}
	cfg.Capture.Device = -1
	cfg.Capture.Channels = 1
	cfg.Playback.Device = -1
	cfg.Playback.Channels = 1
	return cfg
}

func main() {
	graphPath := pflag.StringP("graph", "g", "", "path to a graph description file")
	configPath := pflag.StringP("config", "c", "", "path to a YAML run-configuration file")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	metricsAddr := pflag.String("metrics-addr", "", "address to serve Prometheus /metrics on (empty disables)")
	pflag.Parse()

	switch *logLevel {
	case "debug":
		log.SetLevel(log.DebugLevel)
	case "warn":
		log.SetLevel(log.WarnLevel)
	case "error":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}

	if *graphPath == "" {
		log.Fatal("missing required --graph flag")
	}

	cfg := defaultConfig()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatal("reading run-configuration", "err", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatal("parsing run-configuration", "err", err)
		}
	}

	if err := run(*graphPath, cfg, *metricsAddr); err != nil {
		log.Fatal("run failed", "err", err)
	}
}

func run(graphPath string, cfg runConfig, metricsAddr string) error {
	desc, err := loadGraph(graphPath)
	if err != nil {
		return err
	}

	if err := portaudio.Initialize(); err != nil {
		return fcerr.Wrap(fcerr.IO, "main.run", err)
	}
	defer portaudio.Terminate()

	capture, err := stream.OpenSource(cfg.Capture.Device, cfg.Capture.Channels, cfg.SampleRate, cfg.Period)
	if err != nil {
		return err
	}
	defer capture.Close()

	playback, err := stream.OpenSink(cfg.Playback.Device, cfg.Playback.Channels, cfg.SampleRate, cfg.Period)
	if err != nil {
		return err
	}
	defer playback.Close()

	g, err := graph.Build(registry.Global(), desc)
	if err != nil {
		return err
	}
	if err := graph.Plan(g, cfg.SampleRate, cfg.Capture.Channels, cfg.Playback.Channels); err != nil {
		return err
	}

	var pub control.Publisher
	if cfg.NATSURL != "" {
		p, err := control.NewNATSPublisher(cfg.NATSURL)
		if err != nil {
			log.Warn("control-plane publication disabled", "err", err)
		} else {
			pub = p
		}
	}
	plane := graph.NewPlane(g, graphInstanceName(graphPath), pub)
	logParamInfo(plane)

	if metricsAddr != "" {
		go serveMetrics(metricsAddr)
	}

	exec := graph.NewExecutor(g)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	log.Info("running", "graph", graphPath, "rate", cfg.SampleRate, "period", cfg.Period)
	for {
		select {
		case <-sig:
			data, err := snapshotJSON(plane)
			if err != nil {
				log.Warn("marshaling final snapshot", "err", err)
			} else {
				log.Info("final parameter snapshot", "values", string(data))
			}
			plane.Reset()
			log.Info("shutting down")
			return nil
		default:
			exec.RunPeriod(capture, playback)
		}
	}
}

func loadGraph(path string) (interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fcerr.Wrap(fcerr.IO, "main.loadGraph", err)
	}
	registry.Global().RegisterFamily("builtin", builtin.Family{})
	registry.Global().RegisterFamily("ladspa", ladspa.Family{})
	registry.Global().RegisterFamily("lv2", lv2.Family{})

	desc, err := spajson.Parse(string(data))
	if err != nil {
		return nil, fcerr.Wrap(fcerr.Invalid, "main.loadGraph", err)
	}
	return desc, nil
}

func graphInstanceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func logParamInfo(plane *graph.Plane) {
	for _, p := range plane.Info() {
		log.Debug("parameter", "name", p.Name, "type", p.Type, "default", p.Default, "min", p.Min, "max", p.Max)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	log.Info("serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", "err", err)
	}
}

func snapshotJSON(plane *graph.Plane) ([]byte, error) {
	return json.Marshal(plane.Snapshot())
}
