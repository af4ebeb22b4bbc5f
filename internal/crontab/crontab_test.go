package crontab

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCrontab = `# Crontab schedule file written by camctl
PATH=/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin

0 10 * * * python3 /home/pi/pycam/scripts/start_instrument.py
30 16 * * * python3 /home/pi/pycam/scripts/stop_instrument.py
*/30 * * * * python3 /home/pi/pycam/scripts/check_run.py
0 * * * * python3 /home/pi/pycam/scripts/check_disk_space.py
15 3 * * * python3 /home/pi/pycam/scripts/sync_time.py
# */10 * * * * python3 /home/pi/pycam/scripts/log_temperature.py
`

func TestParse_SampleFile(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))

	require.NoError(t, err)
	assert.Len(t, f.Entries, 6)

	assert.Equal(t, "0", f.Entries[0].Minute)
	assert.Equal(t, "10", f.Entries[0].Hour)
	assert.Equal(t, "python3 /home/pi/pycam/scripts/start_instrument.py", f.Entries[0].Command)
	assert.False(t, f.Entries[0].Disabled)

	assert.Equal(t, "*/30", f.Entries[2].Minute)
	assert.Equal(t, "*", f.Entries[2].Hour)

	// The commented-out temperature logger is kept as a disabled entry.
	assert.True(t, f.Entries[5].Disabled)
	assert.Equal(t, "python3 /home/pi/pycam/scripts/log_temperature.py", f.Entries[5].Command)
}

func TestParse_PathAssignment(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))

	require.NoError(t, err)
	assert.Equal(t, "/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin", f.Path())
}

func TestParse_MissingPathFallsBackToDefault(t *testing.T) {
	f, err := Parse(strings.NewReader("0 10 * * * start\n"))

	require.NoError(t, err)
	assert.Equal(t, DefaultPath, f.Path())
}

func TestParse_TooFewFields(t *testing.T) {
	_, err := Parse(strings.NewReader("0 10 * * start\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestParse_EmptyInput(t *testing.T) {
	f, err := Parse(strings.NewReader(""))

	require.NoError(t, err)
	assert.Empty(t, f.Entries)
}

func TestValidate_SampleFile(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))

	require.NoError(t, err)
	assert.Empty(t, f.Validate())
}

func TestValidate_BadField(t *testing.T) {
	f, err := Parse(strings.NewReader("99 10 * * * start\n"))

	require.NoError(t, err)
	errs := f.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "line 1")
}

func TestValidate_EnvAfterEntry(t *testing.T) {
	content := "0 10 * * * start\nPATH=/usr/bin\n"
	f, err := Parse(strings.NewReader(content))

	require.NoError(t, err)
	errs := f.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "after a schedule entry")
}

func TestLookup_StartStopTimes(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))
	require.NoError(t, err)

	times := f.Lookup("start_instrument.py", "stop_instrument.py")

	require.Contains(t, times, "start_instrument.py")
	require.Contains(t, times, "stop_instrument.py")
	assert.Equal(t, ClockTime{Hour: 10, Minute: 0}, times["start_instrument.py"])
	assert.Equal(t, ClockTime{Hour: 16, Minute: 30}, times["stop_instrument.py"])
}

func TestLookup_MinuteIntervalConventions(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))
	require.NoError(t, err)

	times := f.Lookup("check_run.py", "check_disk_space.py", "log_temperature.py")

	// '*/30 * ...' runs on a 30-minute interval.
	assert.Equal(t, ClockTime{Hour: 0, Minute: 30}, times["check_run.py"])
	// '0 * ...' is hourly, reported as minute 60.
	assert.Equal(t, ClockTime{Hour: 0, Minute: 60}, times["check_disk_space.py"])
	// Disabled entries report a zero time.
	assert.Equal(t, ClockTime{}, times["log_temperature.py"])
}

func TestLookup_UnknownCommand(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))
	require.NoError(t, err)

	times := f.Lookup("no_such_script.py")

	assert.Empty(t, times)
}

func TestSetTime_ExistingEntry(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))
	require.NoError(t, err)

	f.SetTime("start_instrument.py", time.Date(2026, 3, 1, 8, 45, 0, 0, time.UTC))

	times := f.Lookup("start_instrument.py")
	assert.Equal(t, ClockTime{Hour: 8, Minute: 45}, times["start_instrument.py"])
	assert.Len(t, f.Entries, 6)
}

func TestSetTime_AppendsNewEntry(t *testing.T) {
	f := New()

	f.SetTime("python3 dark_capture.py", time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC))

	require.Len(t, f.Entries, 1)
	assert.Equal(t, "0", f.Entries[0].Minute)
	assert.Equal(t, "22", f.Entries[0].Hour)
	assert.Equal(t, "python3 dark_capture.py", f.Entries[0].Command)
}

func TestSetSpec_RejectsBadSpec(t *testing.T) {
	f := New()

	err := f.SetSpec("check_run.py", "*/5 * * *")
	assert.Error(t, err)

	err = f.SetSpec("check_run.py", "61 * * * *")
	assert.Error(t, err)
}

func TestSetSpec_ValidSpec(t *testing.T) {
	f := New()

	err := f.SetSpec("python3 check_run.py", "*/15 6-18 * * *")

	require.NoError(t, err)
	require.Len(t, f.Entries, 1)
	assert.Equal(t, "*/15 6-18 * * *", f.Entries[0].Spec())
}

func TestWrite_RoundTrip(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleCrontab))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, f.Write(&buf))

	// Re-parsing the output reproduces the same semantic content.
	f2, err := Parse(strings.NewReader(buf.String()))
	require.NoError(t, err)

	require.Len(t, f2.Entries, len(f.Entries))
	for i := range f.Entries {
		assert.Equal(t, f.Entries[i].Spec(), f2.Entries[i].Spec())
		assert.Equal(t, f.Entries[i].Command, f2.Entries[i].Command)
		assert.Equal(t, f.Entries[i].Disabled, f2.Entries[i].Disabled)
	}
	assert.Equal(t, f.Path(), f2.Path())
}

func TestEntry_Next(t *testing.T) {
	entry := Entry{Minute: "30", Hour: "16", Dom: "*", Month: "*", Dow: "*", Command: "stop"}

	after := time.Date(2026, 3, 1, 10, 0, 0, 0, time.Local)
	next, err := entry.Next(after)

	require.NoError(t, err)
	assert.True(t, next.After(after))
	assert.Equal(t, 16, next.Hour())
	assert.Equal(t, 30, next.Minute())
}

func TestEntry_String_Disabled(t *testing.T) {
	entry := Entry{Minute: "*/10", Hour: "*", Dom: "*", Month: "*", Dow: "*", Command: "log_temp", Disabled: true}

	assert.Equal(t, "# */10 * * * * log_temp", entry.String())
}

func TestNew_HasHeaderAndPath(t *testing.T) {
	f := New()

	var buf strings.Builder
	require.NoError(t, f.Write(&buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "# Crontab schedule file written by camctl\n"))
	assert.Contains(t, out, "PATH="+DefaultPath+"\n")
}
