package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/settings"
)

const sampleSchedule = `PATH=/usr/local/sbin:/usr/local/bin:/sbin:/bin:/usr/sbin:/usr/bin

0 9 * * * python3 /home/pi/pycam/scripts/start_instrument.py
# 30 17 * * * python3 /home/pi/pycam/scripts/stop_instrument.py
`

func TestFromCrontab(t *testing.T) {
	f, err := crontab.Parse(strings.NewReader(sampleSchedule))
	require.NoError(t, err)

	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.Local)
	r := FromCrontab("/etc/crontab", f, now)

	require.Len(t, r.Entries, 2)

	assert.Equal(t, "0 9 * * *", r.Entries[0].Spec)
	assert.False(t, r.Entries[0].Disabled)
	assert.True(t, r.Entries[0].Next.After(now))
	assert.Equal(t, 9, r.Entries[0].Next.Hour())

	assert.True(t, r.Entries[1].Disabled)
	assert.True(t, r.Entries[1].Next.IsZero())
}

func TestScheduleReport_WriteYAML(t *testing.T) {
	f, err := crontab.Parse(strings.NewReader(sampleSchedule))
	require.NoError(t, err)

	r := FromCrontab("/etc/crontab", f, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))

	var buf bytes.Buffer
	require.NoError(t, r.WriteYAML(&buf))

	out := buf.String()
	assert.Contains(t, out, "path: /etc/crontab")
	assert.Contains(t, out, "schedule: 0 9 * * *")
	assert.Contains(t, out, "start_instrument.py")
	assert.Contains(t, out, "disabled: true")
}

func TestFromSettings(t *testing.T) {
	doc, err := settings.Parse(strings.NewReader("min_cd=5e16\nbg_mode=4\ninit_dir='C:\\Users\\tw9616\\'\n"))
	require.NoError(t, err)

	r := FromSettings("process_settings.txt", doc, time.Now())

	require.Len(t, r.Keys, 3)
	assert.Equal(t, "min_cd", r.Keys[0].Key)
	assert.Equal(t, "float", r.Keys[0].Kind)
	assert.Equal(t, 5e16, r.Keys[0].Value)
	assert.Equal(t, "int", r.Keys[1].Kind)
}

func TestSettingsReport_WriteYAML(t *testing.T) {
	doc, err := settings.Parse(strings.NewReader("bg_mode=4\n"))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, FromSettings("", doc, time.Now()).WriteYAML(&buf))

	out := buf.String()
	assert.Contains(t, out, "key: bg_mode")
	assert.Contains(t, out, "value: 4")
	assert.NotContains(t, out, "path:")
}
