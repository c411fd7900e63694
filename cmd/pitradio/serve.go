package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/pitradio"
	"github.com/unkn0wn-root/pitradio/config"
	"github.com/unkn0wn-root/pitradio/httpapi"
	"github.com/unkn0wn-root/pitradio/transport/kafka"
)

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API over a journal, and the Kafka listener if configured",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			st, err := config.Open(cfg, os.Stderr, reg)
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = st.Close(ctx)
			}()

			ctx := cmd.Context()
			if len(cfg.Kafka.Brokers) > 0 {
				if err := startListener(ctx, cfg.Kafka, cfg.MaxFrameBytes, st.Logger); err != nil {
					return err
				}
			}

			srv := httpapi.New(st.Journal, httpapi.Options{Logger: st.Logger, Gatherer: reg})
			errc := make(chan error, 1)
			go func() { errc <- srv.Start(cfg.Listen) }()

			select {
			case err := <-errc:
				return err
			case <-ctx.Done():
				st.Logger.Info("shutting down", nil)
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(sctx)
			}
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (overrides config)")
	return cmd
}

// startListener logs every command list that arrives on the configured topic.
func startListener(ctx context.Context, cfg config.KafkaConfig, maxBytes int, log pitradio.Logger) error {
	r, err := kafka.NewReader(kafka.Config{Brokers: cfg.Brokers, Topic: cfg.Topic, GroupID: cfg.GroupID})
	if err != nil {
		return err
	}
	sub := kafka.NewSubscriber(r, maxBytes, log)
	go func() {
		defer sub.Close()
		for {
			msg, err := sub.Next(ctx)
			var me *kafka.MessageError
			switch {
			case errors.As(err, &me):
				continue
			case err != nil:
				if ctx.Err() == nil {
					log.Error("kafka listener stopped", pitradio.Fields{"err": err})
				}
				return
			}
			log.Info("radio received", pitradio.Fields{
				"id":       msg.ID,
				"seq":      msg.Seq,
				"commands": msg.Commands,
				"offset":   msg.Offset,
			})
		}
	}()
	return nil
}
