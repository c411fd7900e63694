package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/unkn0wn-root/pitradio/config"
	"github.com/unkn0wn-root/pitradio/transport/kafka"
)

func newPublishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "publish command...",
		Short: "Record commands in the journal and send them to the configured Kafka topic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if len(cfg.Kafka.Brokers) == 0 {
				return errors.New("publish needs kafka.brokers in the config")
			}
			w, err := kafka.NewWriter(kafka.Config{Brokers: cfg.Kafka.Brokers, Topic: cfg.Kafka.Topic})
			if err != nil {
				return err
			}
			st, err := config.Open(cfg, os.Stderr, prometheus.NewRegistry())
			if err != nil {
				_ = w.Close()
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = st.Close(ctx)
			}()

			pub := kafka.NewPublisher(w, st.Journal, st.Logger)
			defer pub.Close()

			tx, err := pub.Publish(cmd.Context(), args)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "seq=%d id=%s frames=%s\n", tx.Seq, tx.ID, tx.Frames)
			return nil
		},
	}
}
