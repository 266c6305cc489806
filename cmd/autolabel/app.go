package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/autolabel"
	"github.com/hupe1980/autolabel/align"
	"github.com/hupe1980/autolabel/annotate"
	"github.com/hupe1980/autolabel/blobstore"
	"github.com/hupe1980/autolabel/blobstore/minio"
	"github.com/hupe1980/autolabel/blobstore/s3"
	"github.com/hupe1980/autolabel/codec"
	"github.com/hupe1980/autolabel/internal/conf"
	"github.com/hupe1980/autolabel/internal/resource"
	"github.com/hupe1980/autolabel/ledger"
	"github.com/hupe1980/autolabel/observability"
)

// app holds the components shared by all commands.
type app struct {
	settings *conf.Settings
	logger   *autolabel.Logger
	router   *blobstore.Router
	registry *prometheus.Registry
	pipeline *autolabel.Pipeline
}

// newApp wires the components described by settings. Logs go to logOut.
func newApp(ctx context.Context, settings *conf.Settings, logOut io.Writer) (*app, error) {
	level, err := settings.LogLevel()
	if err != nil {
		return nil, err
	}
	format := autolabel.LogText
	if settings.Log.JSON {
		format = autolabel.LogJSON
	}
	logger := autolabel.NewWriterLogger(logOut, format, level)

	router, err := newRouter(settings)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	metrics, err := observability.NewPrometheusCollector(registry)
	if err != nil {
		return nil, err
	}

	opts, err := pipelineOptions(ctx, settings)
	if err != nil {
		return nil, err
	}
	opts = append(opts,
		autolabel.WithLogger(logger),
		autolabel.WithMetricsCollector(metrics),
	)

	return &app{
		settings: settings,
		logger:   logger,
		router:   router,
		registry: registry,
		pipeline: autolabel.New(router, opts...),
	}, nil
}

func newRouter(settings *conf.Settings) (*blobstore.Router, error) {
	st := settings.Storage
	ctrl := resource.NewController(resource.Config{
		MaxInFlight:       st.MaxInFlight,
		RequestsPerSecond: st.RequestsPerSecond,
		Burst:             st.Burst,
	})
	router := blobstore.NewRouter(blobstore.WithController(ctrl))

	switch strings.ToLower(st.Backend) {
	case conf.BackendMinIO:
		client, err := minio.Connect(minio.Config{
			Endpoint:  st.MinIO.Endpoint,
			AccessKey: st.MinIO.AccessKey,
			SecretKey: st.MinIO.SecretKey,
			Region:    st.MinIO.Region,
			Secure:    st.MinIO.Secure,
		})
		if err != nil {
			return nil, fmt.Errorf("connect minio: %w", err)
		}
		router.Register("s3", minio.Opener(client))
	default:
		upload := s3.UploadConfig{
			PartSize:       st.Upload.PartSize,
			Concurrency:    st.Upload.Concurrency,
			EnableChecksum: st.Upload.Checksum,
		}
		router.Register("s3", func(ctx context.Context, bucket string) (blobstore.BlobStore, error) {
			opts := []s3.Option{s3.WithUploadConfig(upload)}
			if st.Region != "" {
				opts = append(opts, s3.WithRegion(st.Region))
			}
			if st.Endpoint != "" {
				opts = append(opts, s3.WithEndpoint(st.Endpoint))
			}
			return s3.New(ctx, bucket, opts...)
		})
	}
	return router, nil
}

func pipelineOptions(ctx context.Context, settings *conf.Settings) ([]autolabel.Option, error) {
	ps := settings.Pipeline

	variant, err := annotate.ParseVariant(ps.Variant)
	if err != nil {
		return nil, err
	}

	lineCodec, err := codec.Lookup(ps.Codec)
	if err != nil {
		return nil, err
	}

	opts := []autolabel.Option{
		autolabel.WithCodec(lineCodec),
		autolabel.WithVariant(variant),
		autolabel.WithThreshold(ps.Threshold),
		autolabel.WithFetchWorkers(ps.FetchWorkers),
		autolabel.WithJobType(ps.JobType),
	}

	if ps.Alignment != "" {
		mode, err := align.ParseMode(ps.Alignment)
		if err != nil {
			return nil, err
		}
		opts = append(opts, autolabel.WithAlignment(mode))
	}

	if ps.Seed != 0 {
		opts = append(opts, autolabel.WithRand(rand.New(rand.NewPCG(ps.Seed, ps.Seed))))
	}

	if settings.Ledger.Table != "" {
		l, err := ledger.NewDynamoFromDefault(ctx, settings.Ledger.Table, settings.Ledger.Region)
		if err != nil {
			return nil, fmt.Errorf("open ledger: %w", err)
		}
		opts = append(opts, autolabel.WithLedger(l))
	}
	return opts, nil
}

// exportMetrics pushes the metrics of the finished command.
func (a *app) exportMetrics(ctx context.Context, job string) {
	m := a.settings.Metrics
	if m.PushGateway == "" && m.Textfile == "" {
		return
	}
	if err := observability.Export(a.registry, job, m.PushGateway, m.Textfile); err != nil {
		a.logger.WarnContext(ctx, "failed to export metrics", "error", err)
	}
}
