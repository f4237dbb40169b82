/* Command line front end for the cassette decoder */
package tapewolf

/*------------------------------------------------------------------
 *
 * Name:	TapewolfMain
 *
 * Purpose:	Decode a TRS-80 Color Computer cassette recording.
 *
 * Inputs:	Command line arguments; see the usage message.
 *		One positional argument: a 16-bit 1-channel PCM .WAV
 *		file containing the recording.
 *
 * Outputs:	The decoded program transcript on stdout; diagnostics
 *		on stderr.  Returns the process exit status.
 *
 *------------------------------------------------------------------*/

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
)

func TapewolfMain() int {
	var oneLow = pflag.IntP("one-low", "o", DefaultOneLow, "Low number of data points per cycle for a one.")
	var oneHigh = pflag.IntP("one-high", "O", DefaultOneHigh, "High number of data points per cycle for a one.")
	var zeroLow = pflag.IntP("zero-low", "z", DefaultZeroLow, "Low number of data points per cycle for a zero.")
	var zeroHigh = pflag.IntP("zero-high", "Z", 0, "High number of data points per cycle for a zero.  0 for no limit.")
	var configFile = pflag.StringP("config-file", "c", "", "YAML decode profile.  Explicit flags take precedence over it.")
	var timestampFormat = pflag.StringP("timestamp-format", "T", "", "Precede decoded programs with 'strftime' format time stamp.")
	var debug = pflag.BoolP("debug", "d", false, "Turn on debugging output.")
	var verbose = pflag.BoolP("verbose", "v", false, "Turn on verbose output.")
	var showVersion = pflag.Bool("version", false, "Print version and exit.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - a TRS-80 Color Computer cassette decoder.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: tapewolf [options] FILENAME\n")
		fmt.Fprintf(os.Stderr, "\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FILENAME is a 16-bit 1-channel PCM .WAV encoded file containing\n")
		fmt.Fprintf(os.Stderr, "a Color Computer cassette audio recording.\n")
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		return 0
	}

	if *showVersion {
		fmt.Printf("tapewolf %s\n", VersionString())
		return 0
	}

	var config = DefaultConfig()

	if *configFile != "" {
		var loaded, err = LoadConfig(*configFile)
		if err != nil {
			log.Error("Failed to load decode profile", "err", err)
			return 1
		}

		config = loaded
	}

	// Flags given explicitly on the command line beat the profile.
	if pflag.CommandLine.Changed("one-low") {
		config.OneLow = *oneLow
	}

	if pflag.CommandLine.Changed("one-high") {
		config.OneHigh = *oneHigh
	}

	if pflag.CommandLine.Changed("zero-low") {
		config.ZeroLow = *zeroLow
	}

	if pflag.CommandLine.Changed("zero-high") {
		config.ZeroHigh = *zeroHigh
	}

	config.Debug = config.Debug || *debug
	config.Verbose = config.Verbose || *verbose

	if *timestampFormat != "" {
		config.TimestampFormat = *timestampFormat
	}

	if config.Debug {
		log.SetLevel(log.DebugLevel)
	}

	if err := config.Validate(); err != nil {
		log.Error("Bad decode configuration", "err", err)
		pflag.Usage()
		return 1
	}

	switch {
	case pflag.NArg() < 1:
		fmt.Fprintf(os.Stderr, "**** Missing FILENAME\n")
		pflag.Usage()
		return 1
	case pflag.NArg() > 1:
		fmt.Fprintf(os.Stderr, "**** Too many arguments\n")
		pflag.Usage()
		return 1
	}

	var sound, loadErr = LoadWAV(pflag.Arg(0))
	if loadErr != nil {
		log.Error("Failed to load .wav", "err", loadErr)
		return 1
	}

	var decoder = NewDecoder(config, os.Stdout)

	if err := decoder.Run(sound); err != nil {
		log.Error("Decode failed", "err", err)

		var dumpErr *DumpError
		if errors.As(err, &dumpErr) {
			HexDump(os.Stderr, dumpErr.Payload)
		}

		return 1
	}

	return 0
}
