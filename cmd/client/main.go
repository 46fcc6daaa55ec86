// Command client is a terminal viewer for the check-in feed. It keeps a
// session alive against a server, mirrors the live feed and occupancy, and
// accepts checkin/checkout commands on stdin.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"checkin-app/internal/client"
)

func main() {
	serverURL := flag.String("server", "ws://localhost:8080/ws", "websocket endpoint")
	username := flag.String("username", "", "username to announce")
	flag.Parse()

	if *username == "" {
		fmt.Fprintln(os.Stderr, "-username is required")
		os.Exit(1)
	}

	session := client.NewSession(*serverURL, *username)
	session.Start()
	defer session.Close()

	fmt.Println("commands: checkin <room> [topic] | checkout | occupancy <building> | feed | status | quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "checkin":
			if len(fields) < 2 {
				fmt.Println("usage: checkin <room> [topic]")
				continue
			}
			topic := strings.Join(fields[2:], " ")
			if err := session.Checkin(fields[1], topic); err != nil {
				fmt.Printf("send failed: %v (will be corrected on resync)\n", err)
			}

		case "checkout":
			if err := session.Checkout(); err != nil {
				fmt.Printf("send failed: %v (will be corrected on resync)\n", err)
			}

		case "occupancy":
			if len(fields) < 2 {
				fmt.Println("usage: occupancy <building>")
				continue
			}
			fmt.Printf("%s: %d\n", fields[1], session.State().BuildingOccupancy(fields[1]))

		case "feed":
			for _, ev := range session.State().Feed() {
				ts := time.UnixMilli(ev.Timestamp).Format("15:04:05")
				fmt.Printf("[%s] %s\n", ts, ev.Message)
			}

		case "status":
			printStatus(session)

		case "quit":
			return

		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func printStatus(session *client.Session) {
	conn := session.Conn()
	state := session.State()

	switch {
	case conn.Connected():
		fmt.Println("connection: connected")
	case conn.Reconnecting():
		fmt.Println("connection: reconnecting")
	default:
		fmt.Println("connection: disconnected")
	}

	if own := state.Own(); own.Active {
		fmt.Printf("checked in: %s (%s)\n", own.RoomName, own.Status)
	} else {
		fmt.Println("checked in: no")
	}

	if w := state.Warning(); w != "" {
		fmt.Println("warning:", w)
	}
	if n := state.Notice(); n != "" {
		fmt.Println("server:", n)
	}
}
