// Command rocdump starts the loopback debug dump server, wiring devargs
// for its knobs (listen port, override file to watch).
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nxcore/roc/debug"
	"github.com/nxcore/roc/devargs"
	"github.com/nxcore/roc/rlog"
)

func main() {
	devargsStr := flag.String("devargs", "", "devargs string, e.g. port=0,override=/path/to/override.ini")
	flag.Parse()

	args, err := devargs.Parse(*devargsStr)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rocdump: bad devargs:", err)
		os.Exit(1)
	}

	log := rlog.New(os.Stderr, rlog.INFO, "rocdump")
	port := int(args.Int64("port", 0))

	srv := debug.NewServer()
	addr, closeFn, err := srv.ListenLoopback(port)
	if err != nil {
		fmt.Fprintln(os.Stderr, "rocdump: listen failed:", err)
		os.Exit(1)
	}
	defer closeFn()
	log.Infof("dump server listening on %s", addr)

	if override := args.String("override", ""); override != "" {
		watcher, err := devargs.WatchOverrideFile(args, override)
		if err != nil {
			log.Errorf("override watch failed: %v", err)
		} else {
			defer watcher.Close()
		}
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
}
