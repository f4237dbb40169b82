/* Decode a TRS-80 Color Computer cassette recording from a .WAV file */
package main

import (
	"os"

	tapewolf "github.com/doismellburning/tapewolf/src"
)

func main() {
	os.Exit(tapewolf.TapewolfMain())
}
