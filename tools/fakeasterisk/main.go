// Package main implements fakeasterisk — a deterministic AMI-protocol TCP
// responder for integration testing of manager clients. It speaks the
// manager banner, plaintext and MD5 challenge/response login, Ping, core
// status queries, a global variable store, an in-memory AstDB, CLI command
// output framing, UserEvent fanout, and an optional periodic event
// generator.
package main

import (
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

var (
	flagAddr       = flag.String("addr", "127.0.0.1:5038", "listen address")
	flagVersion    = flag.String("version", "2.10.5", "manager version echoed in the banner")
	flagAuth       = flag.String("auth", "", "user:secret pairs (e.g. 'admin:s3cret,ops:pw'); empty accepts any login")
	flagRequireMD5 = flag.Bool("require-md5", false, "reject plaintext logins, challenge/response only")
	flagLatency    = flag.Duration("latency", 0, "artificial per-response latency")
	flagLogConn    = flag.Bool("log-conn", true, "log connect/disconnect events")
	flagEventIvl   = flag.Duration("event-interval", 0, "interval for generated heartbeat events (0 disables)")
	flagEventName  = flag.String("event-name", "Heartbeat", "event name used by the generator")
	flagNoDelay    = flag.Bool("nodelay", true, "set TCP_NODELAY")
)

func main() {
	flag.Parse()

	server := newManagerServer(*flagVersion)
	server.configureAuth(*flagAuth)
	server.requireMD5 = *flagRequireMD5
	server.latency = *flagLatency
	server.logConn = *flagLogConn

	listener, err := net.Listen("tcp", *flagAddr)
	if err != nil {
		log.Fatalf("fakeasterisk: listen %s failed: %v", *flagAddr, err)
	}

	if *flagEventIvl > 0 {
		go server.runEventGenerator(*flagEventIvl, *flagEventName)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("fakeasterisk: received %v, shutting down", sig)
		_ = listener.Close()
	}()

	log.Printf("fakeasterisk %s listening on %s  (auth=%v require-md5=%v latency=%v event-interval=%v)",
		*flagVersion, *flagAddr, *flagAuth != "", *flagRequireMD5, *flagLatency, *flagEventIvl)

	for {
		conn, acceptErr := listener.Accept()
		if acceptErr != nil {
			log.Printf("fakeasterisk: listener closed, exiting")
			return
		}
		if tc, ok := conn.(*net.TCPConn); ok {
			_ = tc.SetNoDelay(*flagNoDelay)
		}
		go server.serveConnection(conn)
	}
}

func init() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.SetOutput(os.Stderr)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fakeasterisk — deterministic AMI-protocol TCP responder for client testing\n\n")
		fmt.Fprintf(os.Stderr, "Usage: %s [flags]\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
}
