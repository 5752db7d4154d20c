// File: internal/infra/redis/job_store.go
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/model"
	"interpretation-broker/internal/domain/ports/repository"
)

var _ repository.JobStore = (*JobStore)(nil)

// JobStore keeps per-job correlation state in Redis, one key per attribute.
// Values are JSON-encoded. Keys never expire; the job lifecycle (purge on
// the final poll) is the only cleanup.
type JobStore struct {
	client RedisClient
}

func NewJobStore(client RedisClient) *JobStore {
	return &JobStore{client: client}
}

func callbackKey(jobID string) string { return "callback_" + jobID }
func payloadKey(jobID string) string  { return "extra_payload_" + jobID }
func dataKey(jobID string) string     { return "data_" + jobID }
func stopKey(jobID string) string     { return "stop_" + jobID }
func resultKey(jobID string) string   { return "result_" + jobID }

func (s *JobStore) SaveSession(ctx context.Context, sess *model.JobSession) error {
	if err := s.client.Set(ctx, callbackKey(sess.JobID), sess.CallbackName, 0); err != nil {
		return fmt.Errorf("set callback: %w", err)
	}
	if len(sess.ExtraPayload) > 0 {
		b, err := json.Marshal(sess.ExtraPayload)
		if err != nil {
			return fmt.Errorf("marshal extra payload: %w", err)
		}
		if err := s.client.Set(ctx, payloadKey(sess.JobID), b, 0); err != nil {
			return fmt.Errorf("set extra payload: %w", err)
		}
	}
	return nil
}

func (s *JobStore) FindSession(ctx context.Context, jobID string) (*model.JobSession, error) {
	name, err := s.client.Get(ctx, callbackKey(jobID))
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrUnknownJob
	}
	if err != nil {
		return nil, fmt.Errorf("get callback: %w", err)
	}
	sess := &model.JobSession{JobID: jobID, CallbackName: name}

	raw, err := s.client.Get(ctx, payloadKey(jobID))
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get extra payload: %w", err)
	}
	if err == nil {
		if err := json.Unmarshal([]byte(raw), &sess.ExtraPayload); err != nil {
			return nil, fmt.Errorf("unmarshal extra payload: %w", err)
		}
	}
	return sess, nil
}

func (s *JobStore) SaveDelivery(ctx context.Context, d *model.Delivery) error {
	b, err := json.Marshal(d.Data)
	if err != nil {
		return fmt.Errorf("marshal raw data: %w", err)
	}
	if err := s.client.Set(ctx, dataKey(d.JobID), b, 0); err != nil {
		return fmt.Errorf("set raw data: %w", err)
	}
	sb, _ := json.Marshal(d.Stop)
	if err := s.client.Set(ctx, stopKey(d.JobID), sb, 0); err != nil {
		return fmt.Errorf("set stop flag: %w", err)
	}
	return nil
}

func (s *JobStore) RawData(ctx context.Context, jobID string) (any, bool, error) {
	raw, err := s.client.Get(ctx, dataKey(jobID))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get raw data: %w", err)
	}
	var data any
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, false, fmt.Errorf("unmarshal raw data: %w", err)
	}
	return data, true, nil
}

func (s *JobStore) ClearRawData(ctx context.Context, jobID string) error {
	return s.client.Del(ctx, dataKey(jobID))
}

func (s *JobStore) Stop(ctx context.Context, jobID string) (bool, error) {
	raw, err := s.client.Get(ctx, stopKey(jobID))
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, fmt.Errorf("get stop flag: %w", err)
	}
	var stop bool
	if err := json.Unmarshal([]byte(raw), &stop); err != nil {
		return true, fmt.Errorf("unmarshal stop flag: %w", err)
	}
	return stop, nil
}

func (s *JobStore) SaveResult(ctx context.Context, jobID string, result any) error {
	b, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	return s.client.Set(ctx, resultKey(jobID), b, 0)
}

func (s *JobStore) Result(ctx context.Context, jobID string) (any, bool, error) {
	raw, err := s.client.Get(ctx, resultKey(jobID))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get result: %w", err)
	}
	var result any
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, false, fmt.Errorf("unmarshal result: %w", err)
	}
	return result, true, nil
}

func (s *JobStore) Purge(ctx context.Context, jobID string) error {
	return s.client.Del(ctx,
		callbackKey(jobID),
		payloadKey(jobID),
		dataKey(jobID),
		stopKey(jobID),
		resultKey(jobID),
	)
}
