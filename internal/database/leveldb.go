package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

type LevelDBKV struct {
	db     *leveldb.DB
	sync   *opt.WriteOptions
	logger zerolog.Logger
}

func NewLevelDB(path string, logger zerolog.Logger) (*LevelDBKV, error) {
	logger.Info().Str("path", path).Msg("opening leveldb store")

	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelDBKV{
		db:     db,
		sync:   &opt.WriteOptions{Sync: true},
		logger: logger,
	}, nil
}

func (l *LevelDBKV) Get(_ context.Context, key string) (string, bool, error) {
	b, err := l.db.Get([]byte(key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if errors.Is(err, leveldb.ErrClosed) {
		return "", false, ErrClosed
	}
	if err != nil {
		return "", false, fmt.Errorf("get %s: %w", key, err)
	}
	return string(b), true, nil
}

func (l *LevelDBKV) Set(_ context.Context, key, value string) error {
	if err := l.db.Put([]byte(key), []byte(value), l.sync); err != nil {
		if errors.Is(err, leveldb.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}

func (l *LevelDBKV) Delete(_ context.Context, key string) error {
	if err := l.db.Delete([]byte(key), l.sync); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

func (l *LevelDBKV) Close() error {
	return l.db.Close()
}
