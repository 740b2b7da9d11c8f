package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitJSONWithContext(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: LevelDebug, Format: "json", Writer: &buf}))

	WithOrder("order-1").Debug("queued", "items", 2)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "queued", line["msg"])
	assert.Equal(t, "order-1", line["order_id"])
	assert.EqualValues(t, 2, line["items"])
}

func TestInitTwiceFails(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	var buf bytes.Buffer
	require.NoError(t, Init(Config{Writer: &buf}))
	assert.Error(t, Init(Config{Writer: &buf}))
}

func TestLevelFiltersDebug(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	var buf bytes.Buffer
	require.NoError(t, Init(Config{Level: ParseLevel("warn"), Writer: &buf}))

	Info("hidden")
	Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel(" debug "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("verbose"))
}

func TestWithErrorAddsField(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	var buf bytes.Buffer
	require.NoError(t, Init(Config{Format: "json", Writer: &buf}))

	WithError(errors.New("disk full")).Warn("audit append failed")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "disk full", line["error"])
}

func TestGetLoggerDuringClose(t *testing.T) {
	require.NoError(t, Close())
	t.Cleanup(func() { _ = Close() })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.NotNil(t, GetLogger())
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = Close()
			}
		}()
	}
	wg.Wait()
}
