// formation2video renders dance formation payloads into video.
package main

import (
	"os"

	"github.com/ivlev/formation2video/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
