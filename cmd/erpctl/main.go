// Command erpctl runs the ERP operator actions against the configured
// database without going through the HTTP server.
package main

import (
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.WithError(err).Fatal("erpctl")
	}
}
