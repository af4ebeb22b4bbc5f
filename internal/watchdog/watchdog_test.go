package watchdog

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/logger"
	"github.com/openso2/camctl/internal/specs"
)

const scheduleWithWindow = `PATH=/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin

0 9 * * * python3 /home/pi/pycam/scripts/start_instrument.py
30 17 * * * python3 /home/pi/pycam/scripts/stop_instrument.py
`

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.Config{Level: "error", Format: "text", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func testWatchdog(t *testing.T, cfg Config) *Watchdog {
	t.Helper()
	cam := specs.DefaultCameraSpecs()
	spec := specs.DefaultSpecSpecs()
	w, err := New(cfg, &cam, &spec, testLogger(t))
	require.NoError(t, err)
	return w
}

func TestWindowFromSchedule(t *testing.T) {
	f, err := crontab.Parse(strings.NewReader(scheduleWithWindow))
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	w, err := WindowFromSchedule(f, "start_instrument.py", "stop_instrument.py", now)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, time.Date(2024, 6, 1, 17, 30, 0, 0, time.UTC), w.Stop)

	assert.True(t, w.Contains(now))
	assert.False(t, w.Contains(time.Date(2024, 6, 1, 8, 59, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 6, 1, 17, 31, 0, 0, time.UTC)))
}

func TestWindowFromSchedule_Overnight(t *testing.T) {
	overnight := strings.Replace(scheduleWithWindow, "0 9 * * * python3", "0 20 * * * python3", 1)
	f, err := crontab.Parse(strings.NewReader(overnight))
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)
	w, err := WindowFromSchedule(f, "start_instrument.py", "stop_instrument.py", now)
	require.NoError(t, err)

	assert.True(t, w.Contains(time.Date(2024, 6, 1, 23, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 6, 1, 19, 0, 0, 0, time.UTC)))
}

func TestWindowFromSchedule_EqualTimesRejected(t *testing.T) {
	equal := strings.Replace(scheduleWithWindow, "30 17 * * * python3", "0 9 * * * python3", 1)
	f, err := crontab.Parse(strings.NewReader(equal))
	require.NoError(t, err)

	_, err = WindowFromSchedule(f, "start_instrument.py", "stop_instrument.py", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "same")
}

func TestWindowFromSchedule_MissingEntry(t *testing.T) {
	f, err := crontab.Parse(strings.NewReader(scheduleWithWindow))
	require.NoError(t, err)

	_, err = WindowFromSchedule(f, "start_instrument.py", "no_such_script.py", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_such_script.py")
}

func TestWindow_Until(t *testing.T) {
	w := Window{
		Start: time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		Stop:  time.Date(2024, 6, 1, 17, 0, 0, 0, time.UTC),
	}

	assert.Equal(t, time.Duration(0), w.Until(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, time.Hour, w.Until(time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)))
	// After the window closes, the next opening is tomorrow.
	assert.Equal(t, 15*time.Hour, w.Until(time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)))
}

func TestClassifier_Match(t *testing.T) {
	cam := specs.DefaultCameraSpecs()
	spec := specs.DefaultSpecSpecs()
	c, err := NewClassifier(&cam, &spec)
	require.NoError(t, err)

	tests := []struct {
		name    string
		product Product
		ok      bool
	}{
		{"2024-06-01T120000_fltrA_1ag_999904ss_Plume.png", ProductOnBand, true},
		{"2024-06-01T120000_fltrB_1ag_999904ss_Plume.png", ProductOffBand, true},
		{"2024-06-01T120000_100ms_10coadd.npy", ProductSpectra, true},
		{"readme.txt", "", false},
		// Filter marker in the wrong component does not count.
		{"fltrA_2024-06-01T120000_1ag.png", "", false},
	}

	for _, tt := range tests {
		product, ok := c.Match(tt.name)
		assert.Equal(t, tt.ok, ok, tt.name)
		assert.Equal(t, tt.product, product, tt.name)
	}
}

func TestClassifier_Classify(t *testing.T) {
	cam := specs.DefaultCameraSpecs()
	spec := specs.DefaultSpecSpecs()
	c, err := NewClassifier(&cam, &spec)
	require.NoError(t, err)

	seen := c.Classify([]string{
		"2024-06-01T120000_fltrA_1ag_999904ss_Plume.png",
		"2024-06-01T120000_100ms_10coadd.npy",
	})

	assert.True(t, seen[ProductOnBand])
	assert.False(t, seen[ProductOffBand])
	assert.True(t, seen[ProductSpectra])
}

func TestWatchdog_CheckSeesNewFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2024-06-01T110000_fltrA_1ag_999904ss_Plume.png"), nil, 0o644))

	w := testWatchdog(t, Config{ImageDir: dir, SettleTime: time.Second})

	go func() {
		time.Sleep(20 * time.Millisecond)
		os.WriteFile(filepath.Join(dir, "2024-06-01T120000_fltrA_1ag_999904ss_Plume.png"), nil, 0o644)
		os.WriteFile(filepath.Join(dir, "2024-06-01T120000_fltrB_1ag_999904ss_Plume.png"), nil, 0o644)
	}()

	seen, err := w.Check(context.Background(), 100*time.Millisecond)
	require.NoError(t, err)

	assert.True(t, seen[ProductOnBand])
	assert.True(t, seen[ProductOffBand])
	assert.False(t, seen[ProductSpectra])
}

func TestWatchdog_VerifyRestartsWhenNoData(t *testing.T) {
	dir := t.TempDir()
	errorLog := filepath.Join(dir, "errors.log")

	w := testWatchdog(t, Config{
		ImageDir:       filepath.Join(dir, "images"),
		SettleTime:     10 * time.Millisecond,
		RecheckTime:    10 * time.Millisecond,
		RestartCommand: "true",
		ErrorLog:       errorLog,
	})
	require.NoError(t, os.Mkdir(filepath.Join(dir, "images"), 0o755))

	var restarts int
	w.SetRunCommand(func(ctx context.Context, command string) error {
		restarts++
		return nil
	})

	gone, err := w.Verify(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []Product{ProductOnBand, ProductOffBand, ProductSpectra}, gone)
	assert.Equal(t, 2, restarts)

	data, err := os.ReadFile(errorLog)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No new data (on_band, off_band, spectra) during acquisition period")
}

func TestWatchdog_VerifyRecoversAfterRestart(t *testing.T) {
	dir := t.TempDir()
	images := filepath.Join(dir, "images")
	require.NoError(t, os.Mkdir(images, 0o755))

	w := testWatchdog(t, Config{
		ImageDir:       images,
		SettleTime:     10 * time.Millisecond,
		RecheckTime:    100 * time.Millisecond,
		RestartCommand: "true",
	})

	var restarts int
	w.SetRunCommand(func(ctx context.Context, command string) error {
		restarts++
		// The restarted acquisition starts producing data shortly after.
		go func() {
			time.Sleep(20 * time.Millisecond)
			os.WriteFile(filepath.Join(images, "2024-06-01T120000_fltrA_1ag_999904ss_Plume.png"), nil, 0o644)
			os.WriteFile(filepath.Join(images, "2024-06-01T120000_fltrB_1ag_999904ss_Plume.png"), nil, 0o644)
			os.WriteFile(filepath.Join(images, "2024-06-01T120000_100ms_10coadd.npy"), nil, 0o644)
		}()
		return nil
	})

	gone, err := w.Verify(context.Background())
	require.NoError(t, err)

	assert.Empty(t, gone)
	assert.Equal(t, 1, restarts)
}

func TestWatchdog_VerifyNoRestartCommand(t *testing.T) {
	dir := t.TempDir()
	w := testWatchdog(t, Config{
		ImageDir:   dir,
		SettleTime: 10 * time.Millisecond,
	})

	_, err := w.Verify(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no restart command configured")
}
