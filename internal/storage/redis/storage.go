package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/chessapp-go/internal/dependencies/clock"
	"github.com/mcoot/chessapp-go/internal/model"
	"github.com/mcoot/chessapp-go/internal/storage"
)

// Marker fields in the session hash
const (
	markerLoggedIn = "is_logged_in"
	markerUserID   = "current_user_id"
	markerUsername = "current_username"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
	clock  clock.Clock
}

// accountRecord is the JSON form of an account. Durations and times are kept in
// milliseconds to match the other backends.
type accountRecord struct {
	ID              int64  `json:"id"`
	Username        string `json:"username"`
	PasswordDigest  string `json:"password_digest"`
	Wins            int    `json:"wins"`
	TotalTimePlayed int64  `json:"total_time_played_ms"`
	CreatedAt       int64  `json:"created_at_ms"`
}

func (r *accountRecord) toModel() *model.Account {
	return &model.Account{
		ID:              model.AccountID(r.ID),
		Username:        r.Username,
		PasswordDigest:  r.PasswordDigest,
		Wins:            r.Wins,
		TotalTimePlayed: time.Duration(r.TotalTimePlayed) * time.Millisecond,
		CreatedAt:       clock.FromMillis(r.CreatedAt),
	}
}

// New creates a new Redis storage instance
func New(cfg Config, clk clock.Clock) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewWithClient(client, cfg, clk), nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config, clk clock.Clock) *Storage {
	if cfg.MaxTxRetries <= 0 {
		cfg.MaxTxRetries = DefaultConfig().MaxTxRetries
	}
	return &Storage{
		client: client,
		cfg:    cfg,
		clock:  clk,
	}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, username, passwordDigest string) (model.AccountID, error) {
	// Burned ids on a lost race are fine; ids only need to be unique and increasing
	seq, err := s.client.Incr(ctx, accountSeqKey()).Result()
	if err != nil {
		return 0, model.NewStorageError("create account", err)
	}
	id := model.AccountID(seq)

	claimed, err := s.client.SetNX(ctx, usernameIndexKey(username), strconv.FormatInt(seq, 10), 0).Result()
	if err != nil {
		return 0, model.NewStorageError("create account", err)
	}
	if !claimed {
		return 0, model.ErrDuplicateUsername
	}

	data, err := json.Marshal(&accountRecord{
		ID:             seq,
		Username:       username,
		PasswordDigest: passwordDigest,
		CreatedAt:      clock.ToMillis(s.clock.Now()),
	})
	if err != nil {
		return 0, model.NewStorageError("create account", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, accountKey(id), data, 0)
		pipe.SAdd(ctx, accountIDsKey(), seq)
		return nil
	})
	if err != nil {
		// Release the username so a retry can succeed
		if delErr := s.client.Del(ctx, usernameIndexKey(username)).Err(); delErr != nil {
			err = errors.Join(err, fmt.Errorf("release username %q: %w", username, delErr))
		}
		return 0, model.NewStorageError("create account", err)
	}
	return id, nil
}

func (s *Storage) FindByUsername(ctx context.Context, username string) (*model.Account, error) {
	idStr, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.NewStorageError("find by username", err)
	}

	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, model.NewStorageError("find by username", err)
	}
	return s.FindByID(ctx, model.AccountID(id))
}

func (s *Storage) FindByID(ctx context.Context, id model.AccountID) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, model.NewStorageError("find by id", err)
	}

	var rec accountRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, model.NewStorageError("find by id", err)
	}
	return rec.toModel(), nil
}

func (s *Storage) UsernameExists(ctx context.Context, username string) (bool, error) {
	exists, err := s.client.Exists(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		return false, model.NewStorageError("username exists", err)
	}
	return exists > 0, nil
}

func (s *Storage) UpdateStats(ctx context.Context, id model.AccountID, wins int, totalTime time.Duration) (int64, error) {
	key := accountKey(id)
	var affected int64

	update := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				affected = 0
				return nil
			}
			return err
		}

		var rec accountRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		rec.Wins = wins
		rec.TotalTimePlayed = totalTime.Milliseconds()

		updated, err := json.Marshal(&rec)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, 0)
			return nil
		})
		if err == nil {
			affected = 1
		}
		return err
	}

	for i := 0; i < s.cfg.MaxTxRetries; i++ {
		err := s.client.Watch(ctx, update, key)
		if err == nil {
			return affected, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return 0, model.NewStorageError("update stats", err)
		}
	}
	return 0, model.NewStorageError("update stats", redis.TxFailedErr)
}

// loadAccounts fetches every account in the id set
func (s *Storage) loadAccounts(ctx context.Context) ([]*accountRecord, error) {
	ids, err := s.client.SMembers(ctx, accountIDsKey()).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, 0, len(ids))
	for _, raw := range ids {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			continue
		}
		keys = append(keys, accountKey(model.AccountID(id)))
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	records := make([]*accountRecord, 0, len(values))
	for _, val := range values {
		str, ok := val.(string)
		if !ok {
			continue // Account removed since the id scan
		}
		var rec accountRecord
		if err := json.Unmarshal([]byte(str), &rec); err != nil {
			return nil, err
		}
		records = append(records, &rec)
	}
	return records, nil
}

func (s *Storage) Leaderboard(ctx context.Context) ([]*model.Account, error) {
	records, err := s.loadAccounts(ctx)
	if err != nil {
		return nil, model.NewStorageError("leaderboard", err)
	}

	accounts := make([]*model.Account, 0, len(records))
	for _, rec := range records {
		accounts = append(accounts, rec.toModel())
	}
	storage.SortLeaderboard(accounts)
	return accounts, nil
}

func (s *Storage) DeleteAll(ctx context.Context) (int64, error) {
	records, err := s.loadAccounts(ctx)
	if err != nil {
		return 0, model.NewStorageError("delete all", err)
	}

	// The id sequence is kept so ids are never reused
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, rec := range records {
			pipe.Del(ctx, accountKey(model.AccountID(rec.ID)), usernameIndexKey(rec.Username))
		}
		pipe.Del(ctx, accountIDsKey())
		return nil
	})
	if err != nil {
		return 0, model.NewStorageError("delete all", err)
	}
	return int64(len(records)), nil
}

// Marker operations

func (s *Storage) LoadMarker(ctx context.Context) (*model.SessionMarker, error) {
	values, err := s.client.HGetAll(ctx, sessionKey()).Result()
	if err != nil {
		return nil, model.NewStorageError("load marker", err)
	}

	marker := &model.SessionMarker{
		LoggedIn: values[markerLoggedIn] == "true",
		Username: values[markerUsername],
	}
	// An unparsable id is left at zero, which makes the marker invalid
	if id, err := strconv.ParseInt(values[markerUserID], 10, 64); err == nil {
		marker.UserID = model.AccountID(id)
	}
	return marker, nil
}

func (s *Storage) SaveMarker(ctx context.Context, marker model.SessionMarker) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, sessionKey())
		pipe.HSet(ctx, sessionKey(),
			markerLoggedIn, strconv.FormatBool(marker.LoggedIn),
			markerUserID, strconv.FormatInt(int64(marker.UserID), 10),
			markerUsername, marker.Username,
		)
		return nil
	})
	if err != nil {
		return model.NewStorageError("save marker", err)
	}
	return nil
}

func (s *Storage) ClearMarker(ctx context.Context) error {
	if err := s.client.Del(ctx, sessionKey()).Err(); err != nil {
		return model.NewStorageError("clear marker", err)
	}
	return nil
}
