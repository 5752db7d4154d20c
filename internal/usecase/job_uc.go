// File: internal/usecase/job_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"interpretation-broker/internal/domain"
	"interpretation-broker/internal/domain/model"
	"interpretation-broker/internal/domain/ports/adapter"
	"interpretation-broker/internal/domain/ports/repository"
	"interpretation-broker/internal/infra/logging"
	"interpretation-broker/internal/infra/metrics"
)

// Compile-time check
var _ JobUseCase = (*jobUC)(nil)

// JobUseCase correlates interpretation jobs with the callbacks that
// post-process their results. Begin issues the job id, Deliver accepts the
// super-backend's asynchronous report, Poll consumes it.
type JobUseCase interface {
	Begin(ctx context.Context, callbackName string, extraPayload map[string]any) (jobID string, err error)
	Deliver(ctx context.Context, jobID, userEmail string, params map[string]any, body any) error
	Poll(ctx context.Context, jobID string) (*model.PollResult, error)
}

type jobUC struct {
	store    repository.JobStore
	registry *CallbackRegistry
	users    repository.UserDirectory
	bus      adapter.MessageBus
	log      *zerolog.Logger
}

func NewJobUseCase(
	store repository.JobStore,
	registry *CallbackRegistry,
	users repository.UserDirectory,
	bus adapter.MessageBus,
	logger *zerolog.Logger,
) *jobUC {
	return &jobUC{store: store, registry: registry, users: users, bus: bus, log: logger}
}

func (j *jobUC) Begin(ctx context.Context, callbackName string, extraPayload map[string]any) (string, error) {
	if callbackName == "" {
		return "", domain.ErrInvalidCallback
	}
	if _, ok := j.registry.Resolve(callbackName); !ok {
		return "", domain.ErrInvalidCallback
	}

	jobID := uuid.NewString()
	s := &model.JobSession{
		JobID:        jobID,
		CallbackName: callbackName,
		ExtraPayload: extraPayload,
	}
	if err := j.store.SaveSession(ctx, s); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	metrics.IncJobStarted(callbackName)
	return jobID, nil
}

// Deliver stores the raw payload the super-backend reported for jobID and
// pushes the merged payload to the addressed user's delivery group. The
// push is fire-and-forget: lookup or publish failures are logged and the
// delivery is still acknowledged, since the poll path remains available.
// Transformation is deferred to poll time so overlapping retries observe a
// stable raw value.
func (j *jobUC) Deliver(ctx context.Context, jobID, userEmail string, params map[string]any, body any) error {
	defer logging.TraceDuration(j.log, "JobUC.Deliver")()

	session, err := j.store.FindSession(ctx, jobID)
	if err != nil {
		return err
	}
	if _, ok := j.registry.Resolve(session.CallbackName); !ok {
		return domain.ErrNoCallbackRegistered
	}

	// Merge query params under the body; body keys win. Non-object bodies
	// are carried as-is.
	data := body
	if bodyMap, ok := body.(map[string]any); ok {
		merged := make(map[string]any, len(params)+len(bodyMap)+1)
		for k, v := range params {
			merged[k] = v
		}
		for k, v := range bodyMap {
			merged[k] = v
		}
		if _, ok := merged["job_id"]; !ok {
			merged["job_id"] = jobID
		}
		data = merged
	}

	stop := stopFlag(data)
	if err := j.store.SaveDelivery(ctx, &model.Delivery{JobID: jobID, Data: data, Stop: stop}); err != nil {
		return fmt.Errorf("save delivery: %w", err)
	}
	metrics.IncCallbackDelivered()

	user, err := j.users.FindByEmail(ctx, userEmail)
	if err != nil {
		j.log.Warn().Err(err).Str("job_id", jobID).Str("user_email", userEmail).
			Msg("delivery push skipped: user lookup failed")
		return nil
	}
	group := GroupNameFor(user)
	if err := j.bus.Publish(ctx, group, data); err != nil {
		metrics.IncPublishFailed()
		j.log.Warn().Err(err).Str("job_id", jobID).Str("group", group).
			Msg("delivery push failed")
		return nil
	}
	j.log.Info().Str("job_id", jobID).Str("group", group).Msg("delivery pushed")
	return nil
}

// Poll consumes the job's unconsumed raw payload, if any, applying the
// registered transform and caching its output. The raw slot is cleared on
// every successful consume; when the delivery carried stop=true the whole
// job record is purged after the result is composed.
func (j *jobUC) Poll(ctx context.Context, jobID string) (*model.PollResult, error) {
	defer logging.TraceDuration(j.log, "JobUC.Poll")()

	session, err := j.store.FindSession(ctx, jobID)
	if err != nil {
		return nil, err
	}
	transform, ok := j.registry.Resolve(session.CallbackName)
	if !ok {
		return nil, domain.ErrNoCallbackRegistered
	}

	raw, ok, err := j.store.RawData(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("read raw data: %w", err)
	}
	if !ok {
		// Nothing new. An open job that was already consumed once still
		// carries its cached result; repeat polls see it unchanged without
		// re-running the transform.
		res := &model.PollResult{State: model.PollNoData}
		if cached, has, err := j.store.Result(ctx, jobID); err == nil && has {
			res.Result = cached
		}
		metrics.IncPoll("no_data")
		return res, nil
	}

	if m, ok := raw.(map[string]any); ok {
		if _, has := m["job_id"]; !has {
			m["job_id"] = jobID
		}
	}

	result, err := runTransform(ctx, transform, raw)
	if err != nil {
		// Raw data stays in place so a retry-poll can succeed.
		metrics.IncPoll("transform_failed")
		return nil, fmt.Errorf("%w: %v", domain.ErrTransformFailed, err)
	}

	if err := j.store.SaveResult(ctx, jobID, result); err != nil {
		return nil, fmt.Errorf("save result: %w", err)
	}
	stop, err := j.store.Stop(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("read stop flag: %w", err)
	}
	if err := j.store.ClearRawData(ctx, jobID); err != nil {
		return nil, fmt.Errorf("clear raw data: %w", err)
	}

	res := &model.PollResult{
		State:        model.PollProcessed,
		Result:       result,
		Stop:         stop,
		ExtraPayload: session.ExtraPayload,
	}
	if stop {
		if err := j.store.Purge(ctx, jobID); err != nil {
			j.log.Warn().Err(err).Str("job_id", jobID).Msg("job purge failed")
		}
	}
	metrics.IncPoll("processed")
	return res, nil
}

// runTransform shields the poll path from caller-supplied transform code:
// panics surface as errors.
func runTransform(ctx context.Context, t Transform, data any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panicked: %v", r)
		}
	}()
	return t(ctx, data)
}

// stopFlag extracts the stop flag from a delivered payload, defaulting to
// true when the payload does not declare otherwise.
func stopFlag(data any) bool {
	m, ok := data.(map[string]any)
	if !ok {
		return true
	}
	v, ok := m["stop"]
	if !ok {
		return true
	}
	switch s := v.(type) {
	case bool:
		return s
	case string:
		return !strings.EqualFold(s, "false")
	}
	return true
}
