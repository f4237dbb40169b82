/* Reconstruct a tokenized BASIC program from its data blocks */
package tapewolf

/*------------------------------------------------------------------
 *
 * Purpose:	Walk the data block payloads of one program and render
 *		the BASIC lines they contain.
 *
 * Description:	The payloads form one virtual byte stream of line
 *		records.  A record is
 *
 *		  offset 0    byte    next line data block number
 *		  offset 1    byte    next line offset in that block
 *		  offset 2:3  word    BASIC line number, big endian
 *		  offset 4-   bytes   tokenized line, NUL terminated
 *
 *		Records routinely straddle a block boundary, so the
 *		walk keeps an explicit (block, offset) cursor.
 *
 *		The next-line offset field is documented to be
 *		inconsistent across block boundaries (off by plus or
 *		minus one depending on which block you're in), so it is
 *		ignored and lines are terminated by scanning for the
 *		NUL.  Don't "fix" this; the true encoding is
 *		unconfirmed.
 *
 *		The block number field does get used as a framing
 *		sanity check: it starts around 30 (0x1e) and follows
 *		the data block sequence, so a value that is neither the
 *		running count nor one past it means the walk has
 *		desynchronized, which is fatal.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

// Longest tokenized line the walk will buffer before declaring the
// stream garbage.
const maxLineLen = 4096

// statementTokens maps bytes 0x80-0xDF to statement and operator
// keywords of CoCo Color BASIC, Extended BASIC and RSDOS.
var statementTokens = []string{
	"FOR", "GO", "REM", "'", // 0x80
	"ELSE", "IF", "DATA", "PRINT", // 0x84
	"ON", "INPUT", "END", "NEXT", // 0x88
	"DIM", "READ", "RUN", "RESTORE", // 0x8c
	"RETURN", "STOP", "POKE", "CONT", // 0x90
	"LIST", "CLEAR", "NEW", "CLOAD", // 0x94
	"CSAVE", "OPEN", "CLOSE", "LLIST", // 0x98
	"SET", "RESET", "CLS", "MOTOR", // 0x9c
	"SOUND", "AUDIO", "EXEC", "SKIPF", // 0xa0
	"TAB(", "TO", "SUB", "THEN", // 0xa4
	"NOT", "STEP", "OFF", "+", // 0xa8
	"-", "*", "/", "^", // 0xac
	"AND", "OR", ">", "=", // 0xb0
	"<", "DEL", "EDIT", "TRON", // 0xb4
	"TROFF", "DEF", "LET", "LINE", // 0xb8
	"PCLS", "PSET", "PRESET", "SCREEN", // 0xbc
	"PCLEAR", "COLOR", "CIRCLE", "PAINT", // 0xc0
	"GET", "PUT", "DRAW", "PCOPY", // 0xc4
	"PMODE", "PLAY", "DLOAD", "RENUM", // 0xc8
	"FN", "USING", // 0xcc

	// RSDOS adds these (from Dragon User 12/84).
	"DIR", "DRIVE", // 0xce
	"FIELD", "FILES", "KILL", "LOAD", // 0xd0
	"LSET", "MERGE", "RENAME", "RSET", // 0xd4
	"SAVE", "WRITE", "VERIFY", "UNLOAD", // 0xd8
	"DSKINI", "BACKUP", "COPY", "DSKI$", // 0xdc
	"DSKO$", // 0xe0, unreachable: the escape-free range stops at 0xdf
}

// functionTokens maps the byte after an 0xFF escape (minus 0x80) to
// function keywords.
var functionTokens = []string{
	"SGN", "INT", "ABS", "USR", // 0x80
	"RND", "SIN", "PEEK", "LEN", // 0x84
	"STR$", "VAL", "ASC", "CHR$", // 0x88
	"EOF", "JOYSTK", "LEFT$", "RIGHT$", // 0x8c
	"MID$", "POINT", "INKEY$", "MEM", // 0x90
	"ATN", "COS", "TAN", "EXP", // 0x94
	"FIX", "LOG", "POS", "SQR", // 0x98
	"HEX$", "VARPTR", "INSTR", "TIMER", // 0x9c
	"PPOINT", "STRING$", // 0xa0

	// RSDOS adds these (from Dragon User 12/84).
	"CVN", "FREE", // 0xa2
	"LOC", "LOF", "MKN$", // 0xa4
}

// DumpError is a fatal reconstruction error carrying the raw payload of
// the block being walked, so callers can show a dump next to the message.
type DumpError struct {
	msg     string
	Payload []byte
}

func (e *DumpError) Error() string {
	return e.msg
}

// payloadCursor walks the concatenated data block payloads.
type payloadCursor struct {
	blocks  []*block /* Data blocks only, in chain order. */
	idx     int      /* Current block. */
	off     int      /* Offset within its payload. */
	crossed int      /* Block boundaries jumped so far. */
}

func (c *payloadCursor) exhausted() bool {
	return c.idx >= len(c.blocks)
}

// remaining reports the unread bytes left in the current block.
func (c *payloadCursor) remaining() int {
	if c.exhausted() {
		return 0
	}

	return len(c.blocks[c.idx].data) - c.off
}

// current returns the payload of the block under the cursor, for dumps.
func (c *payloadCursor) current() []byte {
	if c.exhausted() {
		return nil
	}

	return c.blocks[c.idx].data
}

// peek returns the next n bytes of the current block without advancing.
func (c *payloadCursor) peek(n int) []byte {
	if c.remaining() < n {
		return nil
	}

	return c.blocks[c.idx].data[c.off : c.off+n]
}

// next consumes one byte, jumping to the following block when the
// current one runs out.
func (c *payloadCursor) next() (byte, bool) {
	if c.exhausted() {
		return 0, false
	}

	var by = c.blocks[c.idx].data[c.off]

	c.off++
	for c.idx < len(c.blocks) && c.off == len(c.blocks[c.idx].data) {
		c.idx++
		c.off = 0
		c.crossed++
	}

	return by, true
}

// renderProgram prints one decoded program: its name, if a name block
// was captured, then every line as "<lineno> <text>".
func renderProgram(chain []*block, w io.Writer) error {
	if len(chain) > 0 && chain[0].state == stateComplete && chain[0].btype == blockName {
		fmt.Fprintf(w, "Program: %8s\n", chain[0].name())
	}

	var datas []*block
	for _, b := range chain {
		if b.state == stateComplete && b.btype == blockData && len(b.data) > 0 {
			datas = append(datas, b)
		}
	}

	if len(datas) == 0 {
		return nil
	}

	var cur = payloadCursor{blocks: datas}
	var firstTag = datas[0].data[0]

	for !cur.exhausted() {
		// Three trailing NULs terminate the program.
		if tail := cur.peek(3); cur.remaining() == 3 && tail != nil &&
			tail[0] == 0 && tail[1] == 0 && tail[2] == 0 {
			return nil
		}

		var expected = firstTag + byte(cur.crossed)

		var tag, _ = cur.next()
		if tag != expected && tag != expected+1 {
			return &DumpError{
				msg:     fmt.Sprintf("bad start of line 0x%02x, expected 0x%02x or 0x%02x", tag, expected, expected+1),
				Payload: cur.current(),
			}
		}

		// Next line offset: deliberately ignored, see above.
		if _, ok := cur.next(); !ok {
			return &DumpError{msg: "recording ended inside a line record", Payload: datas[len(datas)-1].data}
		}

		var hi, hiOK = cur.next()
		var lo, loOK = cur.next()
		if !hiOK || !loOK {
			return &DumpError{msg: "recording ended inside a line record", Payload: datas[len(datas)-1].data}
		}

		var lineno = uint16(hi)<<8 | uint16(lo)

		var body []byte
		for {
			var by, ok = cur.next()
			if !ok {
				return &DumpError{msg: "recording ended inside a line body", Payload: datas[len(datas)-1].data}
			}

			if by == 0x00 {
				break
			}

			body = append(body, by)
			if len(body) >= maxLineLen {
				return &DumpError{
					msg:     fmt.Sprintf("line too big for buffer (%d >= %d)", len(body), maxLineLen),
					Payload: cur.current(),
				}
			}
		}

		fmt.Fprintf(w, "%5d %s\n", lineno, detokenize(body))
	}

	// Ran out of blocks cleanly at a line boundary.  Truncated
	// recordings end up here; nothing fatal about it.
	log.Debug("data blocks ended without trailing NULs")

	return nil
}

// detokenize renders one line body: printable ASCII verbatim, statement
// tokens and 0xFF-escaped function tokens by keyword, anything else as
// escaped hex like "\x7F".  NUL never appears; the record's terminator
// already consumed it.
func detokenize(body []byte) string {
	var sb strings.Builder

	for i := 0; i < len(body); i++ {
		var by = body[i]

		switch {
		case by >= 0x20 && by <= 0x7E:
			sb.WriteByte(by)

		case by >= 0x80 && by <= 0xDF:
			sb.WriteString(statementTokens[by-0x80])

		case by == 0xFF && i+1 < len(body) &&
			body[i+1] >= 0x80 && int(body[i+1])-0x80 < len(functionTokens):
			i++
			sb.WriteString(functionTokens[body[i]-0x80])

		default:
			// Includes a trailing bare 0xFF and 0xFF with a
			// follow byte outside the function table, rather
			// than indexing off the end of it.
			fmt.Fprintf(&sb, "\\x%02X", by)
		}
	}

	return sb.String()
}
