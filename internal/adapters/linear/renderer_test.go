package linear_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/proof/internal/adapters/linear"
)

var t0 = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

// replayRun feeds a small build-and-test run into r.
func replayRun(r *linear.Renderer) {
	r.OnPlanEmit([]string{"libmath", "calc", "calc#test"}, map[string][]string{
		"calc":      {"libmath"},
		"calc#test": {"calc"},
	}, []string{"calc#test"})

	r.OnTaskStart("s1", "", "libmath", t0)
	r.OnTaskLog("s1", []byte("cc -shared -o build/libmath.so math.c\n"))
	r.OnTaskComplete("s1", t0.Add(120*time.Millisecond), nil, false)

	r.OnTaskStart("s2", "", "calc", t0)
	r.OnTaskComplete("s2", t0.Add(time.Millisecond), nil, true)

	r.OnTaskStart("s3", "", "calc#test", t0)
	r.OnTaskLog("s3", []byte("ok 1 - add\nnot ok 2 - sub"))
	r.OnTaskComplete("s3", t0.Add(1500*time.Millisecond), errors.New("test calc#test failed (exit code 1)"), false)
}

func TestRenderer_Golden(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	tests := []struct {
		name string
		opts []linear.Option
	}{
		{name: "linear_mode"},
		{name: "quiet_mode", opts: []linear.Option{linear.WithQuiet()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			r := linear.NewRenderer(&out, &out, tt.opts...)

			require.NoError(t, r.Start(context.Background()))
			replayRun(r)
			require.NoError(t, r.Stop())
			require.NoError(t, r.Wait())

			g := goldie.New(t)
			g.Assert(t, tt.name, out.Bytes())
		})
	}
}

func TestRenderer_PartialLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "calc", t0)

	r.OnTaskLog("span1", []byte("partial"))
	assert.NotContains(t, stdout.String(), "partial")

	r.OnTaskLog("span1", []byte(" line\n"))
	assert.Equal(t, "[calc] partial line\n", stdout.String())

	r.OnTaskLog("span1", []byte("unflushed"))
	r.OnTaskComplete("span1", t0.Add(50*time.Millisecond), nil, false)
	assert.Equal(t, "[calc] partial line\n[calc] unflushed\n", stdout.String())
}

func TestRenderer_InterleavedTasksKeepPrefixes(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "libmath", t0)
	r.OnTaskStart("span2", "", "libio", t0)

	r.OnTaskLog("span1", []byte("libmath line 1\n"))
	r.OnTaskLog("span2", []byte("libio line 1\n"))
	r.OnTaskLog("span1", []byte("libmath line 2\n"))

	assert.Equal(t,
		"[libmath] libmath line 1\n[libio] libio line 1\n[libmath] libmath line 2\n",
		stdout.String())
}

func TestRenderer_QuietHidesPassingOutput(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr, linear.WithQuiet())

	r.OnTaskStart("span1", "", "libmath", t0)
	r.OnTaskLog("span1", []byte("noise\n"))
	r.OnTaskComplete("span1", t0.Add(time.Second), nil, false)

	assert.Empty(t, stdout.String())
	assert.NotContains(t, stderr.String(), "Starting")
	assert.Contains(t, stderr.String(), "libmath")
}

func TestRenderer_Colors(t *testing.T) {
	t.Setenv("NO_COLOR", "")

	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "calc", t0)
	r.OnTaskComplete("span1", t0.Add(time.Second), nil, false)

	assert.Contains(t, stderr.String(), "\x1b[")
}

func TestRenderer_NoColor(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "calc", t0)
	r.OnTaskComplete("span1", t0.Add(time.Second), errors.New("link failed"), false)

	assert.NotContains(t, stderr.String(), "\x1b[")
}

func TestRenderer_UnknownSpansAreIgnored(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskLog("unknown-span", []byte("should be ignored\n"))
	r.OnTaskComplete("unknown-span", t0, nil, false)

	assert.Empty(t, stdout.String())
	assert.Empty(t, stderr.String())
}

func TestRenderer_EmptyLines(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "calc", t0)
	r.OnTaskLog("span1", []byte("\n"))
	r.OnTaskLog("span1", []byte("\r\n"))

	assert.Empty(t, stdout.String())
}

func TestRenderer_StopFlushesBuffers(t *testing.T) {
	var stdout, stderr bytes.Buffer
	r := linear.NewRenderer(&stdout, &stderr)

	r.OnTaskStart("span1", "", "libmath", t0)
	r.OnTaskStart("span2", "", "libio", t0)
	r.OnTaskLog("span1", []byte("partial1"))
	r.OnTaskLog("span2", []byte("partial2"))

	require.NoError(t, r.Stop())

	lines := strings.Split(strings.TrimSpace(stdout.String()), "\n")
	assert.ElementsMatch(t, []string{"[libmath] partial1", "[libio] partial2"}, lines)
}
