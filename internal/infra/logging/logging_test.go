package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestWithAttachesContextFields(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	ctx := WithTraceID(context.Background(), "t-1")
	ctx = WithUserID(ctx, "u-1")
	ctx = WithJobID(ctx, "j-1")

	With(ctx, &base).Info().Msg("hello")

	out := buf.String()
	for _, want := range []string{`"trace_id":"t-1"`, `"user_id":"u-1"`, `"job_id":"j-1"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %s", out, want)
		}
	}
}

func TestWithEmptyContextAddsNothing(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	With(context.Background(), &base).Info().Msg("hello")

	out := buf.String()
	for _, field := range []string{"trace_id", "user_id", "job_id"} {
		if strings.Contains(out, field) {
			t.Errorf("log line %q carries unexpected field %s", out, field)
		}
	}
}

func TestTraceDurationLogsStartAndFinish(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf).Level(zerolog.TraceLevel)

	TraceDuration(&base, "JobUC.Poll")()

	out := buf.String()
	if !strings.Contains(out, `"method":"JobUC.Poll"`) {
		t.Fatalf("log output %q missing method field", out)
	}
	if !strings.Contains(out, "start") || !strings.Contains(out, "finish") {
		t.Fatalf("log output %q missing start/finish pair", out)
	}
	if !strings.Contains(out, "duration") {
		t.Fatalf("log output %q missing duration", out)
	}
}
