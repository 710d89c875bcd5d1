package recap

import (
	"bytes"
	"fmt"
	"image/png"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grateful/internal/core"
	"grateful/internal/journal"
)

func entryAt(text string, at time.Time) core.Entry {
	return core.Entry{ID: text, Text: text, CreatedAt: at}
}

func TestBuildWindowAndLabel(t *testing.T) {
	now := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)
	entries := []core.Entry{
		entryAt("too old", now.Add(-7*24*time.Hour-time.Second)),
		entryAt("boundary", now.Add(-7*24*time.Hour)),
		entryAt("today", now.Add(-time.Hour)),
	}

	r := Build(entries, now, time.UTC)

	assert.Equal(t, Title, r.Title)
	assert.Equal(t, "Jan 2 - Jan 8", r.RangeLabel)
	assert.Equal(t, 2, r.Total)
	assert.Zero(t, r.Remaining)
	require.Len(t, r.Items, 2)
	assert.Equal(t, "today", r.Items[0].Text)
	assert.Equal(t, "boundary", r.Items[1].Text)
	assert.False(t, r.Empty())
}

func TestBuildCapsItems(t *testing.T) {
	now := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	var entries []core.Entry
	for i := 0; i < 10; i++ {
		entries = append(entries, entryAt(fmt.Sprintf("e%d", i), now.Add(-time.Duration(i)*time.Hour)))
	}

	r := Build(entries, now, time.UTC)

	assert.Len(t, r.Items, MaxItems)
	assert.Equal(t, 10, r.Total)
	assert.Equal(t, 3, r.Remaining)
	assert.Equal(t, "e0", r.Items[0].Text)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), nil)
	assert.True(t, r.Empty())
	assert.NotNil(t, r.Items)
	assert.Contains(t, RenderText(r), EmptyMessage)
}

func TestFromSnapshotMatchesBuild(t *testing.T) {
	now := time.Date(2024, 6, 5, 9, 0, 0, 0, time.UTC)
	entries := []core.Entry{
		entryAt("a", now.Add(-48*time.Hour)),
		entryAt("b", now.Add(-time.Minute)),
		entryAt("old", now.Add(-10*24*time.Hour)),
	}
	snap := journal.Build(entries, now, time.UTC)
	assert.Equal(t, Build(entries, now, time.UTC), FromSnapshot(snap))
}

func TestRenderText(t *testing.T) {
	now := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)
	var entries []core.Entry
	for i := 0; i < 9; i++ {
		entries = append(entries, entryAt(fmt.Sprintf("thing %d", i), now.Add(-time.Duration(i)*time.Minute)))
	}

	out := RenderText(Build(entries, now, time.UTC))

	assert.True(t, strings.HasPrefix(out, "My Week of Gratitude\nJan 2 - Jan 8\n"))
	assert.Contains(t, out, "• thing 0\n")
	assert.NotContains(t, out, "thing 7")
	assert.Contains(t, out, "+ 2 more")
	assert.True(t, strings.HasSuffix(out, Footer))
}

func TestRenderPNG(t *testing.T) {
	now := time.Date(2024, 1, 8, 20, 0, 0, 0, time.UTC)
	long := strings.Repeat("a very long gratitude line ", 20)
	r := Build([]core.Entry{
		entryAt("sunrise", now.Add(-time.Hour)),
		entryAt(long, now.Add(-2*time.Hour)),
	}, now, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, r))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, imageWidth, img.Bounds().Dx())
	assert.Greater(t, img.Bounds().Dy(), 2*outerPadding)

	// The corner shows the background gradient, which starts at lavender.
	cr, cg, cb, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(Lavender.R), cr>>8)
	assert.Equal(t, uint32(Lavender.G), cg>>8)
	assert.Equal(t, uint32(Lavender.B), cb>>8)
}

func TestRenderPNGEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPNG(&buf, Build(nil, time.Now(), time.UTC)))
	_, err := png.Decode(&buf)
	require.NoError(t, err)
}

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		maxChars int
		want     []string
	}{
		{"fits", "hello world", 20, []string{"hello world"}},
		{"breaks on space", "hello wide world", 11, []string{"hello wide", "world"}},
		{"truncates", "one two three four five six", 9, []string{"one two", "three..."}},
		{"splits long word", "abcdefghijkl", 5, []string{"abcde", "fg..."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrap(tt.text, tt.maxChars, 2)
			assert.Equal(t, tt.want, got)
			for _, line := range got {
				assert.LessOrEqual(t, utf8.RuneCountInString(line), tt.maxChars)
			}
		})
	}
}
