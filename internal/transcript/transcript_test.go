package transcript

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "github.com/diogo/sydney/internal/errors"
)

func TestLoadString_RoundTrip(t *testing.T) {
	inputs := []string{
		"",
		"plain text without tags",
		"[user](#message)\nhello\n\n[assistant](#message)\nHi there",
		"trailing blank lines\n\n\n\n",
		"\r\nwindows line endings\r\n",
		"unicode: héllo 世界 🎉",
		"[bogus](#tag)\nnot validated",
	}

	for _, in := range inputs {
		tr := New("something else")
		tr.Load(in)
		assert.Equal(t, in, tr.String())
	}
}

func TestAppendTurn_Separator(t *testing.T) {
	tests := []struct {
		name   string
		before string
		want   string
	}{
		{
			name:   "empty transcript",
			before: "",
			want:   "[user](#message)\nhello",
		},
		{
			name:   "ends in text",
			before: "[system](#additional_instructions)\nbe nice",
			want:   "[system](#additional_instructions)\nbe nice\n\n[user](#message)\nhello",
		},
		{
			name:   "ends in one newline",
			before: "be nice\n",
			want:   "be nice\n\n[user](#message)\nhello",
		},
		{
			name:   "ends in blank line",
			before: "be nice\n\n",
			want:   "be nice\n\n[user](#message)\nhello",
		},
		{
			name:   "ends in more than a blank line",
			before: "be nice\n\n\n",
			want:   "be nice\n\n\n[user](#message)\nhello",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := New(tt.before)
			tr.AppendTurn(RoleUser, KindMessage, "hello")
			assert.Equal(t, tt.want, tr.String())
		})
	}
}

func TestAppendTurn_ExactlyOneBlankLineBeforeTag(t *testing.T) {
	for _, before := range []string{"x", "x\n", "x\n\n"} {
		tr := New(before)
		tr.AppendTurn(RoleAssistant, KindMessage, "")

		s := tr.String()
		idx := strings.LastIndex(s, Tag(RoleAssistant, KindMessage))
		require.GreaterOrEqual(t, idx, 3)
		assert.Equal(t, "x\n\n", s[idx-3:idx], "before=%q", before)
	}
}

func TestAppendDelta(t *testing.T) {
	tr := New("")
	tr.AppendTurn(RoleAssistant, KindMessage, "")
	tr.AppendDelta("Hi")
	tr.AppendDelta(" there")
	assert.Equal(t, "[assistant](#message)\nHi there", tr.String())
}

func TestAppendDelta_EmptyDoesNotBumpVersion(t *testing.T) {
	tr := New("x")
	v := tr.Version()
	tr.AppendDelta("")
	assert.Equal(t, v, tr.Version())

	tr.AppendDelta("y")
	assert.Greater(t, tr.Version(), v)
}

func TestReset(t *testing.T) {
	tr := New("old stuff")
	tr.Reset()
	assert.Equal(t, DefaultContext, tr.String())
	assert.True(t, strings.HasSuffix(tr.String(), "\n\n"))

	tr.AppendTurn(RoleUser, KindMessage, "hi")
	assert.True(t, strings.HasSuffix(tr.String(), "\n\n[user](#message)\nhi"))
	assert.NotContains(t, tr.String(), "\n\n\n")
}

func TestTranscript_ConcurrentReaders(t *testing.T) {
	tr := New("")
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.AppendDelta("a")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = tr.String()
			_ = tr.Len()
		}
	}()
	wg.Wait()
	assert.Equal(t, 500, tr.Len())
}

func TestSaveLoadFile_ByteIdentical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chat.md")

	tr := New("")
	tr.AppendTurn(RoleUser, KindMessage, "hello")
	tr.AppendTurn(RoleAssistant, KindMessage, "Hi there 🎉\r\n")
	before := tr.String()

	require.NoError(t, tr.SaveFile(path))

	other := New("")
	require.NoError(t, other.LoadFile(path))
	assert.Equal(t, before, other.String())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "chat.md")

	require.NoError(t, New("first version, longer").SaveFile(path))
	require.NoError(t, New("second").SaveFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestLoadFile_Missing(t *testing.T) {
	tr := New("keep me")
	err := tr.LoadFile(filepath.Join(t.TempDir(), "nope.md"))

	require.Error(t, err)
	assert.True(t, apierrors.IsIOError(err))
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Equal(t, "keep me", tr.String())
}

func TestResetWith(t *testing.T) {
	tr := New("old")
	tr.ResetWith("Be terse.\n")
	assert.Equal(t, "[system](#additional_instructions)\nBe terse.\n\n", tr.String())

	tr.ResetWith("")
	assert.Equal(t, "", tr.String())
}

func TestContextFor_MatchesDefault(t *testing.T) {
	turns := ParseTurns(DefaultContext)
	require.Len(t, turns, 1)
	assert.Equal(t, DefaultContext, ContextFor(turns[0].Body))
}
