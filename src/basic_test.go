package tapewolf

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeDataBlock(payload []byte) *block {
	return &block{
		state:  stateComplete,
		btype:  blockData,
		length: byte(len(payload)),
		data:   payload,
	}
}

func completeNameBlock(name string) *block {
	var b = &block{state: stateComplete, btype: blockName}
	copy(b.progname[:], namePayload(name, byte(fileBASIC), 0, 0)[:progNameLen])

	return b
}

func Test_Detokenize(t *testing.T) {
	assert.Equal(t, "FOR", detokenize([]byte{0x80}))
	assert.Equal(t, "SGN", detokenize([]byte{0xFF, 0x80}))
	assert.Equal(t, "\\x01", detokenize([]byte{0x01}))

	// Printable ASCII passes through.
	assert.Equal(t, "A=1", detokenize([]byte{0x41, 0x3D, 0x31}))

	// Operators are tokens too.
	assert.Equal(t, "I=I+1", detokenize([]byte{0x49, 0xB3, 0x49, 0xAB, 0x31}))

	// Ends of the statement table.
	assert.Equal(t, "DSKI$", detokenize([]byte{0xDF}))
	assert.Equal(t, "\\xE0", detokenize([]byte{0xE0}))

	// A bare escape, or an escape with a follow byte outside the
	// function table, renders as hex instead of faulting.
	assert.Equal(t, "\\xFF", detokenize([]byte{0xFF}))
	assert.Equal(t, "\\xFFA", detokenize([]byte{0xFF, 0x41}))
	assert.Equal(t, "MKN$", detokenize([]byte{0xFF, 0xA6}))

	// One past the function table: the escape renders as hex and the
	// follow byte is then decoded on its own.
	assert.Equal(t, "\\xFFTHEN", detokenize([]byte{0xFF, 0xA7}))
}

func Test_Detokenize_WholeLine(t *testing.T) {
	// FOR I=1 TO 10:PRINT"HI":NEXT I
	var body = []byte{
		0x80, 0x20, 0x49, 0xB3, 0x31, 0x20, 0xA5, 0x20, 0x31, 0x30, 0x3A,
		0x87, 0x22, 0x48, 0x49, 0x22, 0x3A,
		0x8B, 0x20, 0x49,
	}

	assert.Equal(t, `FOR I=1 TO 10:PRINT"HI":NEXT I`, detokenize(body))
}

func Test_RenderProgram_SingleBlock(t *testing.T) {
	var payload = []byte{
		0x1E, 0x00, 0x00, 0x0A, // tag, offset, line 10
		0x87, 0x22, 0x41, 0x22, // PRINT"A"
		0x00,             // end of line
		0x00, 0x00, 0x00, // end of program
	}

	var chain = []*block{
		completeNameBlock("HELLO"),
		completeDataBlock(payload),
		{state: stateComplete, btype: blockEOF},
	}

	var out bytes.Buffer
	require.NoError(t, renderProgram(chain, &out))

	assert.Equal(t, "Program: HELLO   \n   10 PRINT\"A\"\n", out.String())
}

func Test_RenderProgram_CrossBlockLine(t *testing.T) {
	// The same line, once within a single block and once split across
	// two, must render identically.
	var single = []*block{
		completeDataBlock([]byte{
			0x1E, 0x00, 0x00, 0x0A,
			0x87, 0x22, 0x41, 0x22,
			0x00,
			0x00, 0x00, 0x00,
		}),
	}

	var split = []*block{
		completeDataBlock([]byte{0x1E, 0x00, 0x00, 0x0A, 0x87}),
		completeDataBlock([]byte{0x22, 0x41, 0x22, 0x00, 0x00, 0x00, 0x00}),
	}

	var singleOut, splitOut bytes.Buffer
	require.NoError(t, renderProgram(single, &singleOut))
	require.NoError(t, renderProgram(split, &splitOut))

	assert.Equal(t, "   10 PRINT\"A\"\n", singleOut.String())
	assert.Equal(t, singleOut.String(), splitOut.String())
}

func Test_RenderProgram_TagAdvancesAcrossBlocks(t *testing.T) {
	// Second line starts in the second block, so its tag may be the
	// running count (0x1F after one crossing) or one past it.
	var chain = []*block{
		completeDataBlock([]byte{0x1E, 0x00, 0x00, 0x0A, 0x41, 0x00, 0x1F}),
		completeDataBlock([]byte{0x00, 0x00, 0x14, 0x42, 0x00, 0x00, 0x00, 0x00}),
	}

	var out bytes.Buffer
	require.NoError(t, renderProgram(chain, &out))

	assert.Equal(t, "   10 A\n   20 B\n", out.String())
}

func Test_RenderProgram_BadTagIsFatal(t *testing.T) {
	var payload = []byte{
		0x1E, 0x00, 0x00, 0x0A, 0x41, 0x00, // line 10, "A"
		0x70, 0x00, 0x00, 0x14, 0x42, 0x00, // bad tag on line 20
	}

	var out bytes.Buffer
	var err = renderProgram([]*block{completeDataBlock(payload)}, &out)

	require.Error(t, err)

	var dumpErr *DumpError
	require.ErrorAs(t, err, &dumpErr)
	assert.Equal(t, payload, dumpErr.Payload)
	assert.Contains(t, err.Error(), "bad start of line")

	// The good line before the bad one still rendered.
	assert.Equal(t, "   10 A\n", out.String())
}

func Test_RenderProgram_LineTooBigIsFatal(t *testing.T) {
	// A line body that never terminates, spanning enough blocks to
	// blow the line buffer.
	var first = append([]byte{0x1E, 0x00, 0x00, 0x01}, bytes.Repeat([]byte{0x41}, 246)...)
	var chain = []*block{completeDataBlock(first)}

	for i := 0; i < 17; i++ {
		chain = append(chain, completeDataBlock(bytes.Repeat([]byte{0x41}, 250)))
	}

	var out bytes.Buffer
	var err = renderProgram(chain, &out)

	require.Error(t, err)

	var dumpErr *DumpError
	require.ErrorAs(t, err, &dumpErr)
	assert.Contains(t, err.Error(), "line too big")
}

func Test_RenderProgram_TruncatedRecordIsFatal(t *testing.T) {
	// Runs out after the line number high byte.
	var header = renderError(t, []byte{0x1E, 0x00, 0x00})
	assert.Contains(t, header.Error(), "inside a line record")

	// Runs out inside the body.
	var body = renderError(t, []byte{0x1E, 0x00, 0x00, 0x0A, 0x41})
	assert.Contains(t, body.Error(), "inside a line body")
}

func renderError(t *testing.T, payload []byte) error {
	t.Helper()

	var out bytes.Buffer
	var err = renderProgram([]*block{completeDataBlock(payload)}, &out)
	require.Error(t, err)

	return err
}

func Test_RenderProgram_CleanEndAtLineBoundary(t *testing.T) {
	// A truncated recording that stops exactly after a sentinel is
	// not an error; we keep what decoded.
	var payload = []byte{0x1E, 0x00, 0x00, 0x0A, 0x41, 0x00}

	var out bytes.Buffer
	require.NoError(t, renderProgram([]*block{completeDataBlock(payload)}, &out))

	assert.Equal(t, "   10 A\n", out.String())
}

func Test_RenderProgram_NoDataBlocks(t *testing.T) {
	var chain = []*block{
		completeNameBlock("EMPTY"),
		{state: stateComplete, btype: blockEOF},
	}

	var out bytes.Buffer
	require.NoError(t, renderProgram(chain, &out))

	assert.Equal(t, "Program: EMPTY   \n", out.String())
}
