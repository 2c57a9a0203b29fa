// Command textkit-demo loads a file into the reference buffer, builds
// an interpretation over it, drives one edit through the buffer's
// scoped modifier, attaches the highlight pipeline, and prints the
// resulting line/character/codepoint/fold/highlight statistics.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/textkit/textkit/encoding"
	"github.com/textkit/textkit/fold"
	"github.com/textkit/textkit/highlight"
	"github.com/textkit/textkit/interpretation"
	"github.com/textkit/textkit/linebreak"
	"github.com/textkit/textkit/textbuf"
)

const demoTheme = `{
  "captures": {
    "keyword": {"foreground": "#c678dd"},
    "comment": {"foreground": "#5c6370"}
  }
}`

// keywordParser is a stand-in grammar binding: it tags every maximal
// run of ASCII letters, digits and underscores that equals one of the
// words in keywords as a "keyword" capture. Real language support plugs in a proper grammar
// through the same Parser interface.
type keywordParser struct {
	keywords map[string]bool
}

type keywordCursor struct {
	caps []highlight.Capture
	i    int
}

func (c *keywordCursor) Next() (highlight.Capture, bool) {
	if c.i >= len(c.caps) {
		return highlight.Capture{}, false
	}
	cap := c.caps[c.i]
	c.i++
	return cap, true
}

func (p *keywordParser) Parse(_ highlight.Language, _ []highlight.Range, read highlight.ByteReader, _ *highlight.CancelToken) (highlight.QueryCursor, error) {
	var caps []highlight.Capture
	pos := 0
	for {
		chunk, ok := read.ReadAt(pos)
		if !ok {
			break
		}
		inWord := false
		wordStart := 0
		for i := 0; i <= len(chunk); i++ {
			isWordByte := i < len(chunk) && isWordByte(chunk[i])
			switch {
			case isWordByte && !inWord:
				inWord = true
				wordStart = pos + i
			case !isWordByte && inWord:
				inWord = false
				word := string(chunk[wordStart-pos : i])
				if p.keywords[word] {
					caps = append(caps, highlight.Capture{Name: "keyword", Start: wordStart, End: pos + i})
				}
			}
		}
		pos += len(chunk)
	}
	return &keywordCursor{caps: caps}, nil
}

func isWordByte(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9' || b == '_'
}

// fileByteReader reads a fixed byte slice in chunks, the shape
// ComputeHighlight expects from a streaming source rather than a
// whole-document read.
type fileByteReader struct {
	data []byte
}

func (r fileByteReader) ReadAt(byteIndex int) ([]byte, bool) {
	if byteIndex < 0 || byteIndex >= len(r.data) {
		return nil, false
	}
	return r.data[byteIndex:], true
}

// codepointConverter treats byte offsets as codepoint offsets directly,
// the identity mapping appropriate for single-byte-per-codepoint demo
// input; a real caller composes interpretation.Chunks/Lines instead.
type codepointConverter struct{}

func (codepointConverter) CharAt(byteOffset int) int { return byteOffset }

func main() {
	var (
		file      string
		editAt    int
		editText  string
		foldStart int
		foldEnd   int
	)

	rootCmd := &cobra.Command{
		Use:           "textkit-demo",
		Short:         "Load a file, drive an edit, and print text-interpretation statistics",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.OutOrStdout(), file, editAt, editText, foldStart, foldEnd)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&file, "file", "f", "-", "Path to the file to load (- for stdin)")
	rootCmd.PersistentFlags().IntVar(&editAt, "edit-at", 0, "Byte offset at which to insert --edit-text")
	rootCmd.PersistentFlags().StringVar(&editText, "edit-text", "", "Text to insert at --edit-at")
	rootCmd.PersistentFlags().IntVar(&foldStart, "fold-start", -1, "Character offset of a fold to create, with --fold-end")
	rootCmd.PersistentFlags().IntVar(&foldEnd, "fold-end", -1, "Character offset ending the --fold-start fold")

	exitCode := 0
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		exitCode = 1
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func getInputReader(file string) (io.ReadCloser, error) {
	if file == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", file, err)
	}
	return f, nil
}

func run(out io.Writer, file string, editAt int, editText string, foldStart, foldEnd int) error {
	reader, err := getInputReader(file)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	buf := textbuf.NewReferenceBuffer(data)

	w := bufio.NewWriter(out)
	defer w.Flush()

	unsubscribeBuf := buf.Subscribe(func(ev textbuf.ModifyEvent) {
		fmt.Fprintf(w, "buffer event: %+v\n", ev)
	})
	defer unsubscribeBuf()

	reg := encoding.NewRegistry()
	ip, err := interpretation.New(reg, "utf-8", buf)
	if err != nil {
		return fmt.Errorf("building interpretation: %w", err)
	}
	defer ip.Close()

	tc, err := highlight.LoadThemeConfiguration([]byte(demoTheme))
	if err != nil {
		return fmt.Errorf("loading theme configuration: %w", err)
	}
	tag := highlight.NewTag(
		highlight.Language{Name: "demo", ABIVersion: "v14.0.0"},
		&keywordParser{keywords: map[string]bool{"func": true, "package": true, "return": true, "import": true}},
		tc,
	)
	mgr := highlight.NewManager()
	defer mgr.Stop()

	published := make(chan highlight.Result, 1)
	detach := highlight.Attach(ip, "demo-doc", tag, mgr, func(r highlight.Result, d highlight.Diff) {
		published <- r
	})
	defer detach()

	var folds *fold.Index
	if foldStart >= 0 && foldEnd > foldStart {
		folds = fold.New()
		conv := linebreak.NewConverter(ip.Lines())
		startLine, _ := ip.LineColAtCodepoint(conv.CharToCodepoint(foldStart))
		endLine, _ := ip.LineColAtCodepoint(conv.CharToCodepoint(foldEnd))
		folds.AddFold(foldStart, foldEnd, startLine, endLine)
	}

	if editText != "" {
		if folds != nil {
			folds.PrepareForEdit(ip.Lines(), ip.Chunks(), ip.Encoding())
		}

		// ip reacts to this splice itself, through the begin_modify/
		// end_modify/end_edit subscription wired up in interpretation.New:
		// the buffer is the only place this edit's bytes are written.
		scope := buf.ScopedNormalModifier("textkit-demo")
		scope.Modify(editAt, 0, []byte(editText))
		scope.Close()

		if folds != nil {
			patcher := textbuf.NewPositionPatcher([]textbuf.PositionEdit{
				{StartByte: editAt, EraseLen: 0, InsertedLen: len(editText)},
			})
			folds.ApplyEditFixup(patcher, ip.Lines(), ip.Chunks(), ip.Encoding())
		}
	}

	var highlightResult highlight.Result
	select {
	case highlightResult = <-published:
	case <-time.After(2 * time.Second):
		fmt.Fprintln(w, "highlight: timed out waiting for a pass to complete")
	}

	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "bytes:      %d\n", ip.ByteLen())
	fmt.Fprintf(w, "codepoints: %d\n", ip.CodepointLen())
	fmt.Fprintf(w, "characters: %d\n", ip.CharLen())
	fmt.Fprintf(w, "lines:      %d\n", ip.LineCount())
	if folds != nil {
		fmt.Fprintf(w, "folds:      %d (folded chars: %d)\n", folds.Len(), folds.Aggregate().RangeChars)
	}
	fmt.Fprintf(w, "highlight:  status=%v ranges=%d\n", highlightResult.Status, len(highlightResult.Ranges))
	for _, r := range highlightResult.Ranges {
		fmt.Fprintf(w, "  [%d, %d) theme=%v\n", r.Start, r.End, r.Theme)
	}

	return nil
}
