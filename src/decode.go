/* Drive the decode pipeline */
package tapewolf

/*------------------------------------------------------------------
 *
 * Purpose:	samples -> cycles -> bits -> blocks -> programs.
 *
 * Description:	Single threaded, single pass.  The demodulator and the
 *		current block's bit accumulator run once per sample;
 *		the block state machine runs once per completed byte;
 *		the program reconstructor runs once per completed
 *		program, which is detected by an end of file block.
 *
 *		The decoder owns the block chain outright: it is the
 *		only writer while blocks are being built and hands the
 *		sealed chain to the reconstructor exactly once, then
 *		drops it.  Peak memory is one program's blocks plus the
 *		sample buffer.
 *
 *------------------------------------------------------------------*/

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/lestrrat-go/strftime"
)

// Decoder runs the full pipeline for one sample sequence.  Create a
// fresh one per run.
type Decoder struct {
	cfg     Config
	out     io.Writer
	blocks  []*block /* Completed blocks of the program in progress. */
	cur     *block   /* Block under construction, nil between frames. */
	nblocks int      /* Total completed this run, for verbose output. */
}

func NewDecoder(cfg Config, out io.Writer) *Decoder {
	return &Decoder{cfg: cfg, out: out}
}

// Run consumes the whole sample sequence top to bottom once.  Any error
// is fatal for the run; framing hiccups never surface here.
func (d *Decoder) Run(sound *Sound) error {
	if d.cfg.Verbose {
		fmt.Fprintf(d.out, "Samples:  %d\n", len(sound.Samples))
	}

	if len(sound.Samples) == 0 {
		return nil
	}

	var demod = demodulator{prev: sound.Samples[0]}

	for _, s := range sound.Samples[1:] {
		var n, complete = demod.Feed(s)
		if !complete {
			continue
		}

		var class = classifyCycle(n, &d.cfg)
		if class == cycleNoise {
			// Noise never contributes a bit, so it can't knock
			// the byte alignment out by itself.
			debugCycle(n)
			continue
		}

		if d.cur == nil {
			d.cur = newBlock()
		}

		if err := d.cur.feedBit(class == cycleOne); err != nil {
			return err
		}

		if d.cur.state != stateComplete {
			continue
		}

		d.blocks = append(d.blocks, d.cur)
		d.nblocks++

		var eof = d.cur.btype == blockEOF
		d.cur = nil

		if eof {
			// Completed a program.
			if err := d.flush(); err != nil {
				return err
			}
		}
	}

	// A recording that just stops mid-program still gets whatever
	// decoded cleanly.
	return d.flush()
}

// flush renders the accumulated block chain as one program and releases
// it.  No-op when nothing accumulated.
func (d *Decoder) flush() error {
	if len(d.blocks) == 0 {
		return nil
	}

	var chain = d.blocks
	d.blocks = nil

	if prefix := d.timestampPrefix(); prefix != "" {
		fmt.Fprintf(d.out, "[%s]\n", prefix)
	}

	if err := renderProgram(chain, d.out); err != nil {
		return err
	}

	if d.cfg.Verbose {
		fmt.Fprintf(d.out, "Decoded %d blocks\n", len(chain))

		for _, b := range chain {
			switch b.btype {
			case blockName:
				fmt.Fprintf(d.out, "Name Block\n")
			case blockData:
				fmt.Fprintf(d.out, "DATA Block (%d)\n", b.length)
			case blockEOF:
				fmt.Fprintf(d.out, "EOF Block\n")
			}
		}
	}

	return nil
}

func (d *Decoder) timestampPrefix() string {
	if d.cfg.TimestampFormat == "" {
		return ""
	}

	var formatted, err = strftime.Format(d.cfg.TimestampFormat, time.Now())
	if err != nil {
		log.Warn("bad timestamp format", "format", d.cfg.TimestampFormat, "err", err)
		return ""
	}

	return formatted
}
