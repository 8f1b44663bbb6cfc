package metrics

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Enabled               bool   `envconfig:"METRICS_ENABLED" default:"false"`
	Host                  string `envconfig:"METRICS_HOST" default:"127.0.0.1"`
	Port                  int    `envconfig:"METRICS_PORT" default:"9090"`
	HttpServerReadTimeout int    `envconfig:"METRICS_READ_TIMEOUT" default:"30"`
}

// Metrics serves the default prometheus registry on /metrics. The mail
// senders register their delivery counters there.
type Metrics struct {
	io.Closer
	config   Config
	server   *http.Server
	listener net.Listener
}

// InitDefault starts the metrics server, or returns a no-op closer when
// metrics are disabled.
func InitDefault(config Config) (io.Closer, error) {
	if !config.Enabled {
		return nopCloser{}, nil
	}

	provider := New(config)
	if err := provider.Start(); err != nil {
		return nil, errors.Wrap(err, "failed to start metrics server")
	}

	return provider, nil
}

func New(config Config) *Metrics {
	return &Metrics{
		config: config,
		server: NewHttpServer(config),
	}
}

func (s *Metrics) Start() error {
	if err := InitPrometheus(); err != nil {
		return errors.Wrap(err, "failed to init prometheus")
	}

	l, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", s.server.Addr)
	}
	s.listener = l

	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Default().Warn("metrics server failed", "error", err.Error())
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Metrics) Addr() string {
	if s.listener == nil {
		return s.server.Addr
	}
	return s.listener.Addr().String()
}

func (s *Metrics) Close() error {
	return errors.Wrap(s.server.Close(), "failed to close metrics")
}

func NewHttpServer(conf Config) *http.Server {
	r := http.NewServeMux()
	r.Handle("/metrics", promhttp.Handler())
	return &http.Server{
		Addr:        net.JoinHostPort(conf.Host, fmt.Sprint(conf.Port)),
		Handler:     r,
		ReadTimeout: time.Duration(conf.HttpServerReadTimeout) * time.Second,
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
