package core

import (
	"context"
	"sort"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// operationEvent is what gets logged and measured for one boundary call. It
// only carries the tuple and counts; state, verifiers and tokens never reach
// it.
type operationEvent struct {
	operation  string
	providerID string
	orgID      string
	userID     string
	itemCount  int
	countItems bool
	startedAt  time.Time
}

func beginOperation(operation string, providerID string, orgID string, userID string) *operationEvent {
	return &operationEvent{
		operation:  operation,
		providerID: NormalizeProviderID(providerID),
		orgID:      orgID,
		userID:     userID,
		startedAt:  time.Now(),
	}
}

// finish records the counter and histogram and writes one log line: info on
// success, error on failure.
func (s *Service) finish(ctx context.Context, event *operationEvent, err error) {
	if s == nil || event == nil {
		return
	}
	elapsed := time.Since(event.startedAt).Milliseconds()
	tags := OperationTags{
		Operation:  event.operation,
		Status:     statusOf(err),
		ProviderID: event.providerID,
	}
	if s.metrics != nil {
		s.metrics.IncCounter(ctx, OperationCounterName(event.operation), 1, tags.Map())
		s.metrics.ObserveHistogram(ctx, OperationDurationName(event.operation), float64(elapsed), tags.Map())
	}

	fields := event.fields(tags.Status, elapsed, err)
	if err != nil {
		s.log(ctx, fields).Error(event.operation+" failed", flatten(fields)...)
		return
	}
	s.log(ctx, fields).Info(event.operation+" succeeded", flatten(fields)...)
}

func (e *operationEvent) fields(status string, elapsedMS int64, err error) map[string]any {
	fields := map[string]any{
		"event_type":  e.operation,
		"status":      status,
		"duration_ms": elapsedMS,
		"provider_id": e.providerID,
	}
	if e.orgID != "" {
		fields["org_id"] = e.orgID
	}
	if e.userID != "" {
		fields["user_id"] = e.userID
	}
	if e.countItems {
		fields["item_count"] = e.itemCount
	}
	if err != nil {
		fields["error"] = err.Error()
		var rich *goerrors.Error
		if goerrors.As(err, &rich) && rich.TextCode != "" {
			fields["text_code"] = rich.TextCode
		}
	}
	return fields
}

// log binds ctx and, when the logger supports it, the structured fields.
func (s *Service) log(ctx context.Context, fields map[string]any) Logger {
	logger := s.logger
	if ctx != nil {
		logger = logger.WithContext(ctx)
	}
	if fieldsLogger, ok := logger.(FieldsLogger); ok {
		return fieldsLogger.WithFields(fields)
	}
	return logger
}

func flatten(fields map[string]any) []any {
	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	args := make([]any, 0, len(keys)*2)
	for _, key := range keys {
		args = append(args, key, fields[key])
	}
	return args
}
