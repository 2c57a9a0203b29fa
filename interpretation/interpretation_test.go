package interpretation_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/interpretation"
	"github.com/textkit/textkit/textbuf"
)

func newInterp(t *testing.T, initial []byte) (*interpretation.Interpretation, *textbuf.ReferenceBuffer) {
	t.Helper()
	buf := textbuf.NewReferenceBuffer(initial)
	reg := encoding.NewRegistry()
	ip, err := interpretation.New(reg, "utf-8", buf)
	require.NoError(t, err)
	t.Cleanup(ip.Close)
	return ip, buf
}

func edit(buf *textbuf.ReferenceBuffer, startByte, eraseLen int, insert []byte) {
	scope := buf.ScopedNormalModifier("test")
	scope.Modify(startByte, eraseLen, insert)
	scope.Close()
}

func contents(buf *textbuf.ReferenceBuffer) string {
	return string(buf.GetClip(buf.At(0), buf.At(buf.Length())))
}

func TestInsertPlainText(t *testing.T) {
	ip, buf := newInterp(t, nil)
	edit(buf, 0, 0, []byte("hello"))
	require.Equal(t, 5, ip.ByteLen())
	require.Equal(t, 5, ip.CodepointLen())
	require.Equal(t, 1, ip.LineCount())
}

func TestInsertWithLineBreaksUpdatesLineCount(t *testing.T) {
	ip, buf := newInterp(t, nil)
	edit(buf, 0, 0, []byte("hello\nworld\r\n!"))
	require.Equal(t, 3, ip.LineCount())
}

func TestEraseJoinsLines(t *testing.T) {
	ip, buf := newInterp(t, []byte("ab\ncd"))
	require.Equal(t, 2, ip.LineCount())
	edit(buf, 2, 1, nil) // remove the \n
	require.Equal(t, 1, ip.LineCount())
	require.Equal(t, 4, ip.ByteLen())
}

func TestEventsFireInOrder(t *testing.T) {
	ip, buf := newInterp(t, nil)
	var kinds []interpretation.EventKind
	unsub := ip.Subscribe(func(ev interpretation.Event) { kinds = append(kinds, ev.Kind) })
	defer unsub()

	edit(buf, 0, 0, []byte("x"))
	require.Equal(t, []interpretation.EventKind{
		interpretation.BeginEdit,
		interpretation.ModificationDecoded,
		interpretation.EndModification,
		interpretation.EndEdit,
		interpretation.AppearanceChanged,
	}, kinds)
}

func TestCacheKeyChangesAcrossGenerations(t *testing.T) {
	ip, buf := newInterp(t, nil)
	edit(buf, 0, 0, []byte("a"))
	k1 := ip.CacheKey(0, 1)
	edit(buf, 1, 0, []byte("b"))
	k2 := ip.CacheKey(0, 1)
	require.NotEqual(t, k1, k2)
}

func TestConstructionOverExistingContentFiresNoEvents(t *testing.T) {
	buf := textbuf.NewReferenceBuffer([]byte("hello\nworld"))
	reg := encoding.NewRegistry()
	var kinds []interpretation.EventKind
	ip, err := interpretation.New(reg, "utf-8", buf)
	require.NoError(t, err)
	defer ip.Close()
	unsub := ip.Subscribe(func(ev interpretation.Event) { kinds = append(kinds, ev.Kind) })
	defer unsub()

	require.Empty(t, kinds)
	require.Equal(t, 11, ip.ByteLen())
	require.Equal(t, 2, ip.LineCount())
}

func TestBackspaceErasesPrecedingChar(t *testing.T) {
	ip, buf := newInterp(t, []byte("abc"))
	ip.Backspace([]interpretation.Caret{{Pos: 3}}, "test")
	require.Equal(t, "ab", contents(buf))
	require.Equal(t, 2, ip.CharLen())
}

func TestBackspaceAtDocumentStartIsNoop(t *testing.T) {
	ip, buf := newInterp(t, []byte("abc"))
	ip.Backspace([]interpretation.Caret{{Pos: 0}}, "test")
	require.Equal(t, "abc", contents(buf))
	require.Equal(t, 3, ip.CharLen())
}

func TestBackspaceWithSelectionErasesSelection(t *testing.T) {
	ip, buf := newInterp(t, []byte("abcdef"))
	ip.Backspace([]interpretation.Caret{{HasSelection: true, SelStart: 1, SelEnd: 4}}, "test")
	require.Equal(t, "aef", contents(buf))
}

func TestDeleteErasesFollowingChar(t *testing.T) {
	ip, buf := newInterp(t, []byte("abc"))
	ip.Delete([]interpretation.Caret{{Pos: 1}}, "test")
	require.Equal(t, "ac", contents(buf))
}

func TestDeleteAtDocumentEndIsNoop(t *testing.T) {
	ip, buf := newInterp(t, []byte("abc"))
	ip.Delete([]interpretation.Caret{{Pos: 3}}, "test")
	require.Equal(t, "abc", contents(buf))
	require.Equal(t, 3, ip.CharLen())
}

func TestInsertAtCaretPosition(t *testing.T) {
	ip, buf := newInterp(t, []byte("ac"))
	ip.Insert([]interpretation.Caret{{Pos: 1}}, []byte("b"), "test")
	require.Equal(t, "abc", contents(buf))
}

func TestInsertReplacesSelection(t *testing.T) {
	ip, buf := newInterp(t, []byte("abcdef"))
	ip.Insert([]interpretation.Caret{{HasSelection: true, SelStart: 1, SelEnd: 4}}, []byte("X"), "test")
	require.Equal(t, "aXef", contents(buf))
}

func TestMultiCaretBackspaceAppliesAtomically(t *testing.T) {
	ip, buf := newInterp(t, []byte("abcdef"))
	ip.Backspace([]interpretation.Caret{{Pos: 2}, {Pos: 5}}, "test")
	require.Equal(t, "acdf", contents(buf))
}

func TestCaretPositionBeyondDocumentEndIsClamped(t *testing.T) {
	ip, buf := newInterp(t, []byte("abc"))
	ip.Backspace([]interpretation.Caret{{Pos: 1000}}, "test")
	require.Equal(t, "ab", contents(buf))
}

type stubTheme struct{ name string }

func (s stubTheme) Name() string { return s.name }

func TestThemeProvidersOrderedByPriority(t *testing.T) {
	ip, _ := newInterp(t, nil)
	var appearanceChanges int
	ip.Subscribe(func(ev interpretation.Event) {
		if ev.Kind == interpretation.AppearanceChanged {
			appearanceChanges++
		}
	})

	low := ip.AddThemeProvider(1, stubTheme{"low"})
	high := ip.AddThemeProvider(10, stubTheme{"high"})
	_ = low

	providers := ip.ThemeProviders()
	require.Len(t, providers, 2)
	require.Equal(t, "high", providers[0].Name())
	require.Equal(t, "low", providers[1].Name())
	require.Equal(t, 2, appearanceChanges)

	ip.RemoveThemeProvider(high)
	require.Len(t, ip.ThemeProviders(), 1)
	require.Equal(t, 3, appearanceChanges)
}
