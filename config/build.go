package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	stdslog "log/slog"

	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/unkn0wn-root/pitradio"
	c "github.com/unkn0wn-root/pitradio/codec"
	asynchook "github.com/unkn0wn-root/pitradio/hooks/async"
	"github.com/unkn0wn-root/pitradio/hooks/prom"
	plogrus "github.com/unkn0wn-root/pitradio/log/logrus"
	pslog "github.com/unkn0wn-root/pitradio/log/slog"
	pzap "github.com/unkn0wn-root/pitradio/log/zap"
	pzerolog "github.com/unkn0wn-root/pitradio/log/zerolog"
	pr "github.com/unkn0wn-root/pitradio/provider"
	pbadger "github.com/unkn0wn-root/pitradio/provider/badger"
	pbigcache "github.com/unkn0wn-root/pitradio/provider/bigcache"
	predis "github.com/unkn0wn-root/pitradio/provider/redis"
	pristretto "github.com/unkn0wn-root/pitradio/provider/ristretto"
	sq "github.com/unkn0wn-root/pitradio/seqstore"
	"github.com/unkn0wn-root/pitradio/sloghooks"
)

func recordCodec(name string) (c.Codec[pitradio.Transmission], error) {
	switch name {
	case "json":
		return c.JSON[pitradio.Transmission]{}, nil
	case "msgpack":
		return c.Msgpack[pitradio.Transmission]{}, nil
	case "cbor":
		cb, err := c.NewCBOR[pitradio.Transmission](true)
		if err != nil {
			return nil, err
		}
		return cb, nil
	default:
		return nil, fmt.Errorf("unknown record codec %q", name)
	}
}

// NewLogger builds the configured backend writing JSON lines to w.
// The returned func flushes buffered output.
func NewLogger(cfg LogConfig, w io.Writer) (pitradio.Logger, func() error, error) {
	nop := func() error { return nil }
	switch cfg.Backend {
	case "zap":
		lvl, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(w), lvl)
		zl := zap.New(core)
		return pzap.Logger{L: zl}, zl.Sync, nil
	case "logrus":
		lvl, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		ll := logrus.New()
		ll.SetOutput(w)
		ll.SetLevel(lvl)
		ll.SetFormatter(&logrus.JSONFormatter{})
		return plogrus.New(ll, "pitradio"), nop, nil
	case "slog":
		var lvl stdslog.Level
		if err := lvl.UnmarshalText([]byte(cfg.Level)); err != nil {
			return nil, nil, err
		}
		sl := stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: lvl}))
		return pslog.Logger{L: sl}, nop, nil
	case "zerolog":
		lvl, err := zerolog.ParseLevel(cfg.Level)
		if err != nil {
			return nil, nil, err
		}
		zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
		return pzerolog.Logger{L: zl}, nop, nil
	default:
		return nil, nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}

func newRedisClient(cfg RedisConfig) goredis.UniversalClient {
	return goredis.NewUniversalClient(&goredis.UniversalOptions{
		Addrs:    cfg.Addrs,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewProvider(cfg ProviderConfig) (pr.Provider, error) {
	switch cfg.Kind {
	case "ristretto":
		return pristretto.New(pristretto.Config(cfg.Ristretto))
	case "bigcache":
		return pbigcache.New(pbigcache.Config(cfg.Bigcache))
	case "redis":
		return predis.New(predis.Config{Client: newRedisClient(cfg.Redis), Prefix: cfg.Redis.Prefix, CloseClient: true})
	case "badger":
		return pbadger.New(pbadger.Config(cfg.Badger))
	default:
		return nil, fmt.Errorf("unknown provider kind %q", cfg.Kind)
	}
}

func NewSeqStore(cfg SeqStoreConfig) (sq.SeqStore, error) {
	switch cfg.Kind {
	case "local":
		return sq.NewLocalSeqStore(), nil
	case "redis":
		return sq.NewRedisSeqStoreWithTTL(newRedisClient(cfg.Redis), cfg.TTL), nil
	default:
		return nil, fmt.Errorf("unknown seq store kind %q", cfg.Kind)
	}
}

// NewHooks assembles the configured hook chain. reg may be nil when metrics are off.
func NewHooks(cfg HooksConfig, w io.Writer, reg prometheus.Registerer) (pitradio.Hooks, func(), error) {
	var chain pitradio.MultiHooks
	if cfg.LogEvents {
		sl := stdslog.New(stdslog.NewJSONHandler(w, &stdslog.HandlerOptions{Level: stdslog.LevelDebug}))
		chain = append(chain, sloghooks.New(sl, sloghooks.Options{SelfHealEvery: cfg.SelfHealEvery}))
	}
	if cfg.Metrics {
		if reg == nil {
			return nil, nil, errors.New("hooks.metrics needs a prometheus registerer")
		}
		h, err := prom.New(reg)
		if err != nil {
			return nil, nil, err
		}
		chain = append(chain, h)
	}

	var hooks pitradio.Hooks
	switch len(chain) {
	case 0:
		return pitradio.NopHooks{}, func() {}, nil
	case 1:
		hooks = chain[0]
	default:
		hooks = chain
	}
	if cfg.AsyncWorkers > 0 {
		ah := asynchook.New(hooks, cfg.AsyncWorkers, cfg.AsyncQueue)
		return ah, ah.Close, nil
	}
	return hooks, func() {}, nil
}

// Stack is a journal with the logger and hooks it was built with.
type Stack struct {
	Journal pitradio.Journal
	Logger  pitradio.Logger

	closers []func() error
}

// Close shuts the journal down and flushes the logger.
func (s *Stack) Close(ctx context.Context) error {
	var errs []error
	if s.Journal != nil {
		errs = append(errs, s.Journal.Close(ctx))
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// Open builds every component cfg describes. Logs and hook events go to w.
func Open(cfg Config, w io.Writer, reg prometheus.Registerer) (*Stack, error) {
	log, sync, err := NewLogger(cfg.Log, w)
	if err != nil {
		return nil, fmt.Errorf("config: logger: %w", err)
	}
	st := &Stack{Logger: log, closers: []func() error{ignoreSyncErr(sync)}}

	hooks, closeHooks, err := NewHooks(cfg.Hooks, w, reg)
	if err != nil {
		return nil, fmt.Errorf("config: hooks: %w", err)
	}
	st.closers = append(st.closers, func() error { closeHooks(); return nil })

	rc, err := recordCodec(cfg.RecordCodec)
	if err != nil {
		return nil, err
	}
	provider, err := NewProvider(cfg.Provider)
	if err != nil {
		return nil, fmt.Errorf("config: provider: %w", err)
	}
	seqs, err := NewSeqStore(cfg.SeqStore)
	if err != nil {
		_ = provider.Close(context.Background())
		return nil, fmt.Errorf("config: seq store: %w", err)
	}

	j, err := pitradio.New(pitradio.Options{
		Namespace:     cfg.Namespace,
		Provider:      provider,
		RecordCodec:   rc,
		SeqStore:      seqs,
		Logger:        log,
		Hooks:         hooks,
		TTL:           cfg.TTL,
		MaxFrameBytes: cfg.MaxFrameBytes,
		Disabled:      cfg.Disabled,
	})
	if err != nil {
		_ = seqs.Close(context.Background())
		_ = provider.Close(context.Background())
		return nil, err
	}
	st.Journal = j
	log.Info("journal ready", pitradio.Fields{
		"ns":       cfg.Namespace,
		"provider": cfg.Provider.Kind,
		"seqstore": cfg.SeqStore.Kind,
		"codec":    cfg.RecordCodec,
	})
	return st, nil
}

// zap's Sync reports EINVAL/ENOTTY for terminals; the flush itself is best effort.
func ignoreSyncErr(sync func() error) func() error {
	return func() error {
		_ = sync()
		return nil
	}
}
