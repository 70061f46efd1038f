package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisStatus stores job status as Redis hashes with a TTL.
type RedisStatus struct {
	client *redis.Client
	keyNS  string
	ttl    time.Duration
}

func NewRedisStatus(redisURL string, ttl time.Duration) (*RedisStatus, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	c := redis.NewClient(opt)
	if err := c.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStatus{client: c, keyNS: "pdfx:job", ttl: ttl}, nil
}

func (s *RedisStatus) key(jobID string) string { return fmt.Sprintf("%s:%s:status", s.keyNS, jobID) }

func (s *RedisStatus) Set(ctx context.Context, jobID string, st Status) error {
	m := map[string]interface{}{
		"status":     st.Status,
		"progress":   st.Progress,
		"message":    st.Message,
		"current":    st.Current,
		"total":      st.Total,
		"session_id": st.SessionID,
		"file_name":  st.FileName,
		"result_ref": st.ResultRef,
		"error_kind": st.ErrorKind,
	}
	if st.Position != nil {
		m["position"] = *st.Position
	}
	if st.Start != nil {
		m["start"] = st.Start.Format(time.RFC3339Nano)
	}
	if st.End != nil {
		m["end"] = st.End.Format(time.RFC3339Nano)
	}

	key := s.key(jobID)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, m)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatus) Get(ctx context.Context, jobID string) (Status, bool, error) {
	res, err := s.client.HGetAll(ctx, s.key(jobID)).Result()
	if err != nil {
		return Status{}, false, err
	}
	if len(res) == 0 {
		return Status{}, false, nil
	}
	return decodeStatus(res), true, nil
}

// decodeStatus rebuilds a Status from hash fields; malformed numbers read as 0.
func decodeStatus(res map[string]string) Status {
	st := Status{
		Status:    res["status"],
		Message:   res["message"],
		SessionID: res["session_id"],
		FileName:  res["file_name"],
		ResultRef: res["result_ref"],
		ErrorKind: res["error_kind"],
	}
	st.Progress, _ = strconv.Atoi(res["progress"])
	st.Current, _ = strconv.Atoi(res["current"])
	st.Total, _ = strconv.Atoi(res["total"])
	if v, ok := res["position"]; ok {
		if p, err := strconv.Atoi(v); err == nil {
			st.Position = &p
		}
	}
	if v := res["start"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.Start = &t
		}
	}
	if v := res["end"]; v != "" {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			st.End = &t
		}
	}
	return st
}

func (s *RedisStatus) Close() error { return s.client.Close() }

// Ping checks the Redis connection.
func (s *RedisStatus) Ping(ctx context.Context) error { return s.client.Ping(ctx).Err() }
