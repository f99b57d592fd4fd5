package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"go_verified_copy/client/comms"
	"go_verified_copy/constants"
	"net"
	"os"
	"strconv"

	"github.com/akamensky/argparse"
	"github.com/sirupsen/logrus"
)

func main() {
	args := argparse.NewParser("client", constants.Title)

	bind := args.String("a", "address", &argparse.Options{Required: true, Help: "Target host address"})
	dscp := args.Int("d", "dscp", &argparse.Options{Required: false, Help: "DSCP field for QoS",
		Default: constants.DEFAULT_DSCP})
	file := args.String("f", "file", &argparse.Options{Required: true, Help: "File path"})
	mptcp := args.Flag("m", "mptcp", &argparse.Options{Help: "Enable Multipath TCP"})
	port := args.Int("p", "port", &argparse.Options{Required: false, Help: "Target port",
		Default: constants.DEFAULT_PORT})
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

	// Validate and hash the file before touching the network.
	src, err := comms.PrepareSource(*file)
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	fmt.Printf("File size: %d bytes (%.2f GB)\n", src.Size, float64(src.Size)/(1024*1024*1024))
	fmt.Println("File hash:", hex.EncodeToString(src.Hash[:]))

	addr := net.JoinHostPort(*bind, strconv.Itoa(*port))

	client := comms.NewClient(logrus.NewEntry(log))
	client.OnProgress = printProgress

	// Connect to host.
	if err := client.Connect(context.Background(), addr, *dscp, *mptcp); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}

	fmt.Println("Sending file:", src.Name)
	_, err = client.SendFile(src)
	fmt.Println()
	// Close connection.
	client.Close()

	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
	fmt.Println("File transfer complete")
}

// printProgress rewrites progress line in place
func printProgress(sent, total uint64) {
	percent := 100.0
	if total > 0 {
		percent = float64(sent) / float64(total) * 100
	}
	fmt.Printf("\r[%.2f%%] Sent %d / %d bytes", percent, sent, total)
}
