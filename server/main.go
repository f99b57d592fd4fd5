package main

import (
	"context"
	"fmt"
	"go_verified_copy/constants"
	server "go_verified_copy/server/controller"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"
)

func main() {
	args := argparse.NewParser("server", constants.Title)

	dscp := args.Int("d", "dscp", &argparse.Options{Required: false, Help: "DSCP field for QoS",
		Default: constants.DEFAULT_DSCP})
	bind := args.String("l", "listen", &argparse.Options{Required: false, Help: "Listen on address",
		Default: constants.DEFAULT_LISTEN})
	mptcp := args.Flag("m", "mptcp", &argparse.Options{Help: "Enable Multipath TCP"})
	port := args.Int("p", "port", &argparse.Options{Required: false, Help: "Listening port",
		Default: constants.DEFAULT_PORT})
	path := args.String("r", "root", &argparse.Options{Required: true, Help: "Directory for storing received files"})
	serve := args.Flag("s", "serve", &argparse.Options{Help: "Keep accepting transfers one at a time instead of exiting after the first"})
	verbose := args.Flag("v", "verbose", &argparse.Options{Help: "Enable debug logging"})

	err := args.Parse(os.Args)

	if err != nil {
		fmt.Print(args.Usage(err))
		os.Exit(1)
	}

	if *port <= 0 || *port > 65535 {
		fmt.Println("Invalid port number (1-65535)")
		os.Exit(1)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	srv, err := server.NewServer(server.Options{
		Root:       *path,
		ChunkSize:  constants.TRANSFER_CHUNK,
		DSCP:       *dscp,
		MPTCP:      *mptcp,
		Logger:     log,
		OnProgress: printProgress,
	})
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := srv.Listen(ctx, net.JoinHostPort(*bind, strconv.Itoa(*port))); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	// Close the listener when the application closes.
	defer srv.Close()

	if *serve {
		if err := srv.Serve(ctx); err != nil {
			fmt.Println(err.Error())
			os.Exit(1)
		}
		return
	}

	result, err := srv.ServeOne(ctx)
	fmt.Println()
	if err != nil {
		fmt.Println(err.Error())
		srv.Close()
		os.Exit(1)
	}
	fmt.Println("File saved to:", result.Path)
}

// printProgress rewrites progress line in place
func printProgress(received, total uint64) {
	fmt.Print("\r" + progressLine(received, total))
}

// progressLine formats received bytes as percentage of total
func progressLine(received, total uint64) string {
	percent := 100.0
	if total > 0 {
		percent = float64(received) / float64(total) * 100
	}
	return fmt.Sprintf("[%.2f%%] Received %d / %d bytes", percent, received, total)
}
