// Package badger persists transmissions in an embedded Badger database so a
// single node keeps its radio log across restarts.
package badger

import (
	"context"
	"errors"
	"time"

	bdb "github.com/dgraph-io/badger/v3"

	pr "github.com/unkn0wn-root/pitradio/provider"
)

type Provider struct {
	db *bdb.DB
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	Dir        string // ignored when InMemory is set
	InMemory   bool
	SyncWrites bool
}

func New(cfg Config) (*Provider, error) {
	var opts bdb.Options
	switch {
	case cfg.InMemory:
		opts = bdb.DefaultOptions("").WithInMemory(true)
	case cfg.Dir != "":
		opts = bdb.DefaultOptions(cfg.Dir)
	default:
		return nil, errors.New("badger: dir is required unless in-memory")
	}
	opts = opts.WithLogger(nil).WithSyncWrites(cfg.SyncWrites)

	db, err := bdb.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Provider{db: db}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	var out []byte
	err := p.db.View(func(txn *bdb.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		out, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, bdb.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return out, true, nil
}

// Set honors ttl at Badger's one-second granularity; ttl <= 0 never expires.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	err := p.db.Update(func(txn *bdb.Txn) error {
		e := bdb.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	return p.db.Update(func(txn *bdb.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (p *Provider) Close(_ context.Context) error {
	return p.db.Close()
}
