package hub

import (
	"log"
	"os"
	"strings"
)

var hubDebugEnabled = strings.EqualFold(os.Getenv("SALACHAT_HUB_DEBUG"), "1")

func debugLog(format string, args ...interface{}) {
	if hubDebugEnabled {
		log.Printf(format, args...)
	}
}
