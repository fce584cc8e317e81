package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/armon/go-metrics"
	"github.com/armon/go-metrics/prometheus"
	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/0xPolygon/custody-gateway/config"
)

func (s *Server) setupTelemetry() error {
	interval, err := config.ParseDuration(s.config.MetricsInterval)
	if err != nil {
		return err
	}

	if interval == 0 {
		interval = config.DefaultMetricsInterval
	}

	inm := metrics.NewInmemSink(interval, 6*interval)
	metrics.DefaultInmemSignal(inm)

	registry := promclient.NewRegistry()

	promSink, err := prometheus.NewPrometheusSinkFrom(prometheus.PrometheusOpts{
		Name:       "custody_prometheus_sink",
		Expiration: 0,
		Registerer: registry,
	})
	if err != nil {
		return err
	}

	metricsConf := metrics.DefaultConfig("custody")
	metricsConf.EnableHostname = false

	if _, err = metrics.NewGlobal(metricsConf, metrics.FanoutSink{
		inm, promSink,
	}); err != nil {
		return err
	}

	if s.config.Telemetry == nil || s.config.Telemetry.PrometheusAddr == "" {
		return nil
	}

	return s.startPrometheusServer(s.config.Telemetry.PrometheusAddr, registry)
}

func (s *Server) startPrometheusServer(addr string, gatherer promclient.Gatherer) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.prometheusServer = srv
	s.prometheusAddr = listener.Addr()

	go func() {
		s.logger.Info("Prometheus server started", "addr", s.prometheusAddr.String())

		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Prometheus HTTP server ListenAndServe", "err", err)
		}
	}()

	return nil
}

func (s *Server) closePrometheusServer() error {
	if s.prometheusServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.prometheusServer.Shutdown(ctx)
}
