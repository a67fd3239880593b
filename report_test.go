package s3freeze

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestReport_Accumulates(t *testing.T) {
	r := NewReport(zaptest.NewLogger(t))
	require.NotEmpty(t, r.RunID)

	r.Info(KindQuarantine, "archive.db", "moved to removed-binaries/archive.db")
	r.Warn(KindEncoding, "out/legacy.html", "converted from ISO 8859-1 to utf-8")
	r.Error(KindMissing, "img/nope.png", errors.Wrap(ErrMissingAsset, "img/nope.png"))
	r.Warn(KindSkipped, "/broken", "status 500")

	assert.Len(t, r.Entries, 4)
	assert.Equal(t, 1, r.Count(LevelInfo))
	assert.Equal(t, 2, r.Count(LevelWarn))
	assert.Equal(t, 1, r.Count(LevelError))
	assert.Len(t, r.Filter(KindSkipped), 1)
	assert.Empty(t, r.Filter(KindForm))
	assert.ErrorIs(t, r.Err(), ErrMissingAsset)
}

func TestReport_ErrNilWithoutErrors(t *testing.T) {
	r := NewReport(nil)
	r.Warn(KindForm, "contact.html", "has a form")
	assert.NoError(t, r.Err())
}

func TestReport_WriteText(t *testing.T) {
	r := NewReport(nil)
	r.Pages = []string{"index.html", "about.html"}
	r.Quarantined = []string{"archive.db"}
	r.Info(KindQuarantine, "archive.db", "moved")
	r.Warn(KindForm, "contact.html", "has a form")

	var buf bytes.Buffer
	require.NoError(t, r.WriteText(&buf))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	require.Len(t, lines, 3)
	assert.Equal(t, "# s3freeze run "+r.RunID+": 2 pages, 1 quarantined, 1 warnings, 0 errors", lines[0])
	assert.Equal(t, "INFO   quarantine  archive.db: moved", lines[1])
	assert.Equal(t, "WARN   form        contact.html: has a form", lines[2])
}

func TestReport_SaveJSON(t *testing.T) {
	r := NewReport(nil)
	r.Pages = []string{"index.html"}
	r.Warn(KindSkipped, "/broken", "status 500")
	path := filepath.Join(t.TempDir(), "nested", "summary.json")

	require.NoError(t, r.SaveJSON(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded.RunID)
	assert.Equal(t, []string{"index.html"}, decoded.Pages)
	require.Len(t, decoded.Entries, 1)
	assert.Equal(t, KindSkipped, decoded.Entries[0].Kind)
	assert.Equal(t, "status 500", decoded.Entries[0].Message)
}
